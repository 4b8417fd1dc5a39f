package handlers

import (
	"github.com/nazhim/markaz-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health  *HealthHandler
	Ledger  *LedgerHandler
	Task    *TaskHandler
	Wallet  *WalletHandler
	Vehicle *VehicleHandler
	Report  *ReportHandler
	Job     *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(),
		Ledger:  NewLedgerHandler(svcs.Ledger),
		Task:    NewTaskHandler(svcs.Task),
		Wallet:  NewWalletHandler(svcs.Wallet),
		Vehicle: NewVehicleHandler(svcs.Vehicle),
		Report:  NewReportHandler(svcs.Report, svcs.Export),
		Job:     NewJobHandler(svcs.Job),
	}
}
