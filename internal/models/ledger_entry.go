package models

import (
	"time"

	"gorm.io/gorm"
)

// LedgerEntry represents one money movement in the organization ledger.
// Amounts are stored in the smallest currency unit, always positive; the
// kind decides the sign when balances are computed.
type LedgerEntry struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Kind          string         `gorm:"not null;index" json:"kind"`
	Amount        int64          `gorm:"not null" json:"amount"`
	Description   string         `gorm:"not null" json:"description"`
	OccurredAt    time.Time      `gorm:"type:date;not null;index" json:"occurred_at"`
	BalanceBefore int64          `gorm:"not null;default:0" json:"balance_before"`
	BalanceAfter  int64          `gorm:"not null;default:0" json:"balance_after"`
	OwnerUserID   string         `gorm:"not null;index" json:"owner_user_id"`
	VehicleID     *uint          `gorm:"index" json:"vehicle_id,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Associations
	Vehicle *Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
}

// TableName specifies the table name for LedgerEntry
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// Ledger entry kind constants. Fuel purchases share the table and the
// per-entry snapshot chain but are excluded from the operating balance.
const (
	EntryKindIncome       = "income"
	EntryKindExpense      = "expense"
	EntryKindFuelPurchase = "fuel_purchase"
)

// ValidEntryKind reports whether kind is one of the known ledger kinds
func ValidEntryKind(kind string) bool {
	switch kind {
	case EntryKindIncome, EntryKindExpense, EntryKindFuelPurchase:
		return true
	}
	return false
}

// SignedAmount returns the amount with the sign implied by the entry kind:
// income adds, expense and fuel purchases subtract.
func (e *LedgerEntry) SignedAmount() int64 {
	switch e.Kind {
	case EntryKindIncome:
		return e.Amount
	case EntryKindExpense, EntryKindFuelPurchase:
		return -e.Amount
	}
	return 0
}

// IsFuel returns true for fuel purchase entries
func (e *LedgerEntry) IsFuel() bool {
	return e.Kind == EntryKindFuelPurchase
}

// LedgerEntryResponse is the JSON response format for ledger entries
type LedgerEntryResponse struct {
	ID            uint      `json:"id"`
	Kind          string    `json:"kind"`
	Amount        int64     `json:"amount"`
	Description   string    `json:"description"`
	OccurredAt    time.Time `json:"occurred_at"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	OwnerUserID   string    `json:"owner_user_id"`
	VehicleID     *uint     `json:"vehicle_id,omitempty"`
	VehicleName   string    `json:"vehicle_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToResponse converts LedgerEntry to LedgerEntryResponse
func (e *LedgerEntry) ToResponse() LedgerEntryResponse {
	resp := LedgerEntryResponse{
		ID:            e.ID,
		Kind:          e.Kind,
		Amount:        e.Amount,
		Description:   e.Description,
		OccurredAt:    e.OccurredAt,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		OwnerUserID:   e.OwnerUserID,
		VehicleID:     e.VehicleID,
		CreatedAt:     e.CreatedAt,
	}
	if e.Vehicle != nil {
		resp.VehicleName = e.Vehicle.Name
	}
	return resp
}
