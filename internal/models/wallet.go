package models

import "time"

// Wallet is the revolving cash float. Exactly one is expected to exist;
// GetOrCreateWallet enforces that by convention plus the unique name.
type Wallet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Wallet
func (Wallet) TableName() string {
	return "wallets"
}

// DefaultWalletName is the name of the singleton wallet
const DefaultWalletName = "operational-float"

// WalletEntry is one immutable movement of the cash float. There is no
// soft delete; reversals are written as offsetting entries.
type WalletEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	WalletID   uint      `gorm:"not null;index" json:"wallet_id"`
	Type       string    `gorm:"not null;index" json:"type"`
	Source     string    `gorm:"not null;index" json:"source"`
	Amount     int64     `gorm:"not null" json:"amount"`
	OccurredAt time.Time `gorm:"type:date;not null;index" json:"occurred_at"`
	TaskID     *uint     `gorm:"index" json:"task_id,omitempty"`
	CashbackID *uint     `gorm:"index" json:"cashback_id,omitempty"`
	CreatedBy  string    `gorm:"not null" json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for WalletEntry
func (WalletEntry) TableName() string {
	return "wallet_entries"
}

// Wallet entry type constants
const (
	WalletEntryCredit = "credit"
	WalletEntryDebit  = "debit"
)

// Wallet entry source constants
const (
	WalletSourceCashback   = "cashback"
	WalletSourceManual     = "manual"
	WalletSourceAdjustment = "adjustment"
)

// ValidWalletEntryType reports whether t is credit or debit
func ValidWalletEntryType(t string) bool {
	return t == WalletEntryCredit || t == WalletEntryDebit
}

// ValidWalletSource reports whether source is one of the known sources
func ValidWalletSource(source string) bool {
	switch source {
	case WalletSourceCashback, WalletSourceManual, WalletSourceAdjustment:
		return true
	}
	return false
}

// SignedAmount returns the amount signed by entry type: credits add, debits subtract
func (e *WalletEntry) SignedAmount() int64 {
	if e.Type == WalletEntryDebit {
		return -e.Amount
	}
	return e.Amount
}
