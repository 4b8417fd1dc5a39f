package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nazhim/markaz-api/docs" // Swagger docs
	"github.com/nazhim/markaz-api/internal/config"
	"github.com/nazhim/markaz-api/internal/database"
	"github.com/nazhim/markaz-api/internal/handlers"
	"github.com/nazhim/markaz-api/internal/jobs"
	"github.com/nazhim/markaz-api/internal/middleware"
	"github.com/nazhim/markaz-api/internal/repository"
	"github.com/nazhim/markaz-api/internal/services"
	"github.com/nazhim/markaz-api/internal/storage"
	"github.com/nazhim/markaz-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Markaz Operations Finance API
// @version 1.0
// @description REST API for the markaz operational ledger and spending task settlement
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	// Run schema migrations
	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("Migrations applied")

	// Initialize storage
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized local storage")

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, worker, store)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Redirect root to swagger
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})

		// Swagger documentation
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Ledger
			ledger := protected.Group("/ledger")
			{
				ledger.GET("", h.Ledger.Index)
				ledger.POST("", h.Ledger.Create)
				ledger.GET("/balance", h.Ledger.Balance)
				ledger.POST("/recompute", middleware.RequireAdmin(), h.Ledger.Recompute)
				ledger.DELETE("/:entry_id", middleware.RequireAdmin(), h.Ledger.Delete)
			}

			// Spending tasks
			tasks := protected.Group("/tasks")
			{
				tasks.GET("", h.Task.Index)
				tasks.POST("", h.Task.Create)
				tasks.GET("/:task_id", h.Task.Show)
				tasks.GET("/:task_id/summary", h.Task.Summary)
				tasks.POST("/:task_id/funding", h.Task.CreateFunding)
				tasks.PUT("/:task_id/funding", h.Task.UpdateFunding)
				tasks.POST("/:task_id/receipts", h.Task.CreateReceipt)
				tasks.DELETE("/:task_id/receipts/:receipt_id", h.Task.DeleteReceipt)
				tasks.POST("/:task_id/receipts/:receipt_id/attachment", h.Task.UploadReceiptAttachment)
				tasks.POST("/:task_id/receipts/:receipt_id/cashbacks", h.Task.CreateCashback)
				tasks.POST("/:task_id/refund_done", middleware.RequireAdmin(), h.Task.RefundDone)
				tasks.POST("/:task_id/reimburse_done", middleware.RequireAdmin(), h.Task.ReimburseDone)
			}

			// Wallet
			wallet := protected.Group("/wallet")
			{
				wallet.GET("/balance", h.Wallet.Balance)
				wallet.GET("/entries", h.Wallet.Entries)
				wallet.POST("/entries", middleware.RequireAdmin(), h.Wallet.CreateEntry)
			}

			// Vehicles
			vehicles := protected.Group("/vehicles")
			{
				vehicles.GET("", h.Vehicle.Index)
				vehicles.POST("", middleware.RequireAdmin(), h.Vehicle.Create)
				vehicles.GET("/:vehicle_id", h.Vehicle.Show)
			}

			// Reports
			reports := protected.Group("/reports")
			{
				reports.GET("/monthly_ledger", h.Report.MonthlyLedger)
				reports.GET("/monthly_ledger/export", h.Report.ExportMonthlyLedger)
				reports.GET("/spending", h.Report.Spending)
			}

			// Worker status (admin only)
			protected.GET("/jobs/status", middleware.RequireAdmin(), h.Job.Status)
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	if cfg.RecomputeIntervalHours <= 0 {
		logger.Info("Recurring jobs disabled")
		return
	}
	interval := time.Duration(cfg.RecomputeIntervalHours) * time.Hour

	// Rebuild running balance snapshots so backdated inserts and deletes
	// cannot leave them stale for long
	worker.ScheduleEveryImmediate(interval, func(ctx context.Context) error {
		logger.Info("[Job] Recomputing ledger balances...")
		count, err := svcs.Ledger.RecomputeAll(ctx)
		if err != nil {
			return err
		}
		logger.Info("[Job] Ledger balances recomputed", "entries", count)
		return nil
	})

	// Stored task statuses are caches of derived state; sweep them on the
	// same cadence
	worker.ScheduleEvery(interval, func(ctx context.Context) error {
		logger.Info("[Job] Repairing task statuses...")
		repaired, err := svcs.Task.RepairStatuses(ctx)
		if err != nil {
			return err
		}
		logger.Info("[Job] Task statuses repaired", "changed", repaired)
		return nil
	})

	logger.Info("Scheduled recurring jobs")
}
