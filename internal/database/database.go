package database

import (
	"fmt"
	"os"
	"time"

	"github.com/nazhim/markaz-api/internal/models"
	pkgLogger "github.com/nazhim/markaz-api/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect establishes a connection to the PostgreSQL database
func Connect(databaseURL string) (*gorm.DB, error) {
	logLevel := logger.Silent
	if os.Getenv("ENVIRONMENT") != "production" {
		logLevel = logger.Info
	}

	gormLogger := pkgLogger.NewGormLogger(
		logLevel,
		200*time.Millisecond,
	)

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate runs schema migrations for all persisted record types
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Vehicle{},
		&models.LedgerEntry{},
		&models.SpendingTask{},
		&models.TaskFunding{},
		&models.TaskReceipt{},
		&models.ReceiptItem{},
		&models.Cashback{},
		&models.TaskSettlement{},
		&models.Wallet{},
		&models.WalletEntry{},
	)
}
