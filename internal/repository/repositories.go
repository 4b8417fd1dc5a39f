package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Ledger  LedgerRepository
	Task    TaskRepository
	Wallet  WalletRepository
	Vehicle VehicleRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Ledger:  NewLedgerRepository(db),
		Task:    NewTaskRepository(db),
		Wallet:  NewWalletRepository(db),
		Vehicle: NewVehicleRepository(db),
	}
}
