package services

import (
	"github.com/nazhim/markaz-api/internal/jobs"
	"github.com/nazhim/markaz-api/internal/repository"
	"github.com/nazhim/markaz-api/internal/storage"
)

// Services holds all service instances
type Services struct {
	Ledger  *LedgerService
	Task    *TaskService
	Wallet  *WalletService
	Vehicle *VehicleService
	Report  *ReportService
	Export  *ExportService
	Job     *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, store *storage.LocalStorage) *Services {
	ledgerSvc := NewLedgerService(repos.Ledger, repos.Vehicle)
	taskSvc := NewTaskService(repos.Task, repos.Wallet, store)
	reportSvc := NewReportService(ledgerSvc, repos.Task, repos.Ledger)

	return &Services{
		Ledger:  ledgerSvc,
		Task:    taskSvc,
		Wallet:  NewWalletService(repos.Wallet),
		Vehicle: NewVehicleService(repos.Vehicle),
		Report:  reportSvc,
		Export:  NewExportService(reportSvc),
		Job:     NewJobService(worker),
	}
}
