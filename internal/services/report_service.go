package services

import (
	"context"
	"time"

	"github.com/nazhim/markaz-api/internal/calendar"
	"github.com/nazhim/markaz-api/internal/models"
	"github.com/nazhim/markaz-api/internal/repository"
)

// ReportService composes the calendar resolver, ledger and task engine
// into period reports
type ReportService struct {
	ledgerSvc *LedgerService
	taskRepo  repository.TaskRepository
	ledger    repository.LedgerRepository
}

// NewReportService creates a new report service
func NewReportService(ledgerSvc *LedgerService, taskRepo repository.TaskRepository, ledger repository.LedgerRepository) *ReportService {
	return &ReportService{ledgerSvc: ledgerSvc, taskRepo: taskRepo, ledger: ledger}
}

// MonthlyLedgerReport is the ledger view of one Hijri reporting month.
// UsedFallback tells callers the window degraded to the current Gregorian month.
type MonthlyLedgerReport struct {
	LunarYear    int                           `json:"lunar_year"`
	LunarMonth   int                           `json:"lunar_month"`
	Window       calendar.MonthWindow          `json:"window"`
	UsedFallback bool                          `json:"used_fallback"`
	Totals       MonthlyTotals                 `json:"totals"`
	FuelByCar    []repository.FuelVehicleTotal `json:"fuel_by_car"`
}

// MonthlyLedgerReportFor builds the ledger report of a Hijri month
func (s *ReportService) MonthlyLedgerReportFor(ctx context.Context, lunarYear, lunarMonth int) (*MonthlyLedgerReport, error) {
	window := calendar.ResolveMonthWindow(lunarYear, lunarMonth)

	totals, err := s.ledgerSvc.MonthlyTotalsFor(ctx, window)
	if err != nil {
		return nil, err
	}

	fuel, err := s.ledger.FuelTotalsByVehicle(ctx, window.Start, window.End)
	if err != nil {
		return nil, ErrPersistence(err)
	}

	return &MonthlyLedgerReport{
		LunarYear:    lunarYear,
		LunarMonth:   lunarMonth,
		Window:       window,
		UsedFallback: window.Fallback,
		Totals:       *totals,
		FuelByCar:    fuel,
	}, nil
}

// SpendingReportTask is one funded task inside a spending report, with its
// summary recomputed on read rather than trusted from the stored status
type SpendingReportTask struct {
	Task    models.SpendingTaskResponse `json:"task"`
	Summary models.TaskSummary          `json:"summary"`
}

// SpendingReportTotals aggregates the funded tasks of the window
type SpendingReportTotals struct {
	Budget        int64 `json:"budget"`
	TotalReceipts int64 `json:"total_receipts"`
	RefundDue     int64 `json:"refund_due"`
	ReimburseDue  int64 `json:"reimburse_due"`
}

// SpendingReport covers one Gregorian month of spending tasks
type SpendingReport struct {
	Year          int                           `json:"year"`
	Month         int                           `json:"month"`
	Window        calendar.MonthWindow          `json:"window"`
	Tasks         []SpendingReportTask          `json:"tasks"`
	Totals        SpendingReportTotals          `json:"totals"`
	UnfundedTasks []models.SpendingTaskResponse `json:"unfunded_tasks"`
}

// SpendingReportFor selects tasks by funding.received_at inside the Gregorian
// month and separately lists tasks created in the month that were never
// funded. The two lists carry no overlap guarantee.
func (s *ReportService) SpendingReportFor(ctx context.Context, year int, month time.Month) (*SpendingReport, error) {
	if month < time.January || month > time.December {
		return nil, ErrValidation("month", "month must be between 1 and 12")
	}
	window := calendar.GregorianMonthWindow(year, month)

	funded, err := s.taskRepo.ListFundedInWindow(ctx, window.Start, window.End)
	if err != nil {
		return nil, ErrPersistence(err)
	}

	report := &SpendingReport{
		Year:   year,
		Month:  int(month),
		Window: window,
		Tasks:  make([]SpendingReportTask, 0, len(funded)),
	}
	for i := range funded {
		summary := funded[i].Summary()
		report.Tasks = append(report.Tasks, SpendingReportTask{
			Task:    funded[i].ToResponse(),
			Summary: summary,
		})
		report.Totals.Budget += summary.Budget
		report.Totals.TotalReceipts += summary.TotalReceipts
		report.Totals.RefundDue += summary.RefundDue
		report.Totals.ReimburseDue += summary.ReimburseDue
	}

	unfunded, err := s.taskRepo.ListUnfundedCreatedInWindow(ctx, window.Start, window.End)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	report.UnfundedTasks = make([]models.SpendingTaskResponse, 0, len(unfunded))
	for i := range unfunded {
		report.UnfundedTasks = append(report.UnfundedTasks, unfunded[i].ToResponse())
	}

	return report, nil
}
