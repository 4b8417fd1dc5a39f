package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignedAmount(t *testing.T) {
	income := LedgerEntry{Kind: EntryKindIncome, Amount: 5000}
	expense := LedgerEntry{Kind: EntryKindExpense, Amount: 1200}
	fuel := LedgerEntry{Kind: EntryKindFuelPurchase, Amount: 800}

	assert.Equal(t, int64(5000), income.SignedAmount())
	assert.Equal(t, int64(-1200), expense.SignedAmount())
	assert.Equal(t, int64(-800), fuel.SignedAmount())
}

func TestValidEntryKind(t *testing.T) {
	assert.True(t, ValidEntryKind(EntryKindIncome))
	assert.True(t, ValidEntryKind(EntryKindExpense))
	assert.True(t, ValidEntryKind(EntryKindFuelPurchase))
	assert.False(t, ValidEntryKind("donation"))
	assert.False(t, ValidEntryKind(""))
}

func TestLedgerEntryToResponse(t *testing.T) {
	vid := uint(3)
	entry := LedgerEntry{
		ID:            7,
		Kind:          EntryKindFuelPurchase,
		Amount:        800,
		Description:   "diesel",
		BalanceBefore: 10000,
		BalanceAfter:  9200,
		VehicleID:     &vid,
		Vehicle:       &Vehicle{ID: 3, Name: "bus"},
	}

	resp := entry.ToResponse()
	assert.Equal(t, "bus", resp.VehicleName)
	assert.Equal(t, int64(9200), resp.BalanceAfter)
	assert.True(t, entry.IsFuel())
}

func TestWalletEntrySignedAmount(t *testing.T) {
	credit := WalletEntry{Type: WalletEntryCredit, Amount: 300}
	debit := WalletEntry{Type: WalletEntryDebit, Amount: 300}

	assert.Equal(t, int64(300), credit.SignedAmount())
	assert.Equal(t, int64(-300), debit.SignedAmount())
}
