package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nazhim/markaz-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
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
	require.NoError(t, err)
	return db
}

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedEntry(t *testing.T, repo LedgerRepository, kind string, amount int64, occurred time.Time, vehicleID *uint) *models.LedgerEntry {
	t.Helper()
	entry := &models.LedgerEntry{
		Kind:        kind,
		Amount:      amount,
		Description: "seed",
		OccurredAt:  occurred,
		OwnerUserID: "user-1",
		VehicleID:   vehicleID,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	return entry
}

func TestFindLatestByDate(t *testing.T) {
	repo := NewLedgerRepository(setupDB(t))
	ctx := context.Background()

	latest, err := repo.FindLatestByDate(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	seedEntry(t, repo, models.EntryKindIncome, 100, at(2026, 1, 10), nil)
	newest := seedEntry(t, repo, models.EntryKindIncome, 200, at(2026, 1, 20), nil)
	seedEntry(t, repo, models.EntryKindIncome, 300, at(2026, 1, 15), nil)

	latest, err = repo.FindLatestByDate(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newest.ID, latest.ID)
}

// Same-day entries break the tie by insertion order
func TestFindLatestByDateSameDay(t *testing.T) {
	repo := NewLedgerRepository(setupDB(t))

	seedEntry(t, repo, models.EntryKindIncome, 100, at(2026, 1, 10), nil)
	second := seedEntry(t, repo, models.EntryKindIncome, 200, at(2026, 1, 10), nil)

	latest, err := repo.FindLatestByDate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestSumSigned(t *testing.T) {
	repo := NewLedgerRepository(setupDB(t))
	ctx := context.Background()

	seedEntry(t, repo, models.EntryKindIncome, 10000, at(2026, 1, 5), nil)
	seedEntry(t, repo, models.EntryKindExpense, 2500, at(2026, 1, 10), nil)
	seedEntry(t, repo, models.EntryKindFuelPurchase, 1200, at(2026, 1, 12), nil)

	operating, err := repo.SumSigned(ctx, []string{models.EntryKindIncome, models.EntryKindExpense}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), operating)

	all, err := repo.SumSigned(ctx, []string{models.EntryKindIncome, models.EntryKindExpense, models.EntryKindFuelPurchase}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6300), all)

	from := at(2026, 1, 8)
	to := at(2026, 1, 11)
	ranged, err := repo.SumSigned(ctx, []string{models.EntryKindIncome, models.EntryKindExpense}, &from, &to)
	require.NoError(t, err)
	assert.Equal(t, int64(-2500), ranged)
}

func TestSoftDeleteHidesEntry(t *testing.T) {
	repo := NewLedgerRepository(setupDB(t))
	ctx := context.Background()

	entry := seedEntry(t, repo, models.EntryKindIncome, 10000, at(2026, 1, 5), nil)

	require.NoError(t, repo.SoftDelete(ctx, entry.ID))

	_, err := repo.FindByID(ctx, entry.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	sum, err := repo.SumSigned(ctx, []string{models.EntryKindIncome}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)

	assert.ErrorIs(t, repo.SoftDelete(ctx, 999), gorm.ErrRecordNotFound)
}

func TestUpdateBalances(t *testing.T) {
	repo := NewLedgerRepository(setupDB(t))
	ctx := context.Background()

	first := seedEntry(t, repo, models.EntryKindIncome, 5000, at(2026, 1, 5), nil)
	second := seedEntry(t, repo, models.EntryKindExpense, 2000, at(2026, 1, 6), nil)

	first.BalanceBefore, first.BalanceAfter = 0, 5000
	second.BalanceBefore, second.BalanceAfter = 5000, 3000
	require.NoError(t, repo.UpdateBalances(ctx, []models.LedgerEntry{*first, *second}))

	reloaded, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), reloaded.BalanceBefore)
	assert.Equal(t, int64(3000), reloaded.BalanceAfter)
}

func TestFuelTotalsByVehicle(t *testing.T) {
	db := setupDB(t)
	repo := NewLedgerRepository(db)
	ctx := context.Background()

	bus := models.Vehicle{Name: "bus", Plate: "AB-123"}
	require.NoError(t, db.Create(&bus).Error)

	seedEntry(t, repo, models.EntryKindFuelPurchase, 700, at(2026, 1, 10), &bus.ID)
	seedEntry(t, repo, models.EntryKindFuelPurchase, 300, at(2026, 1, 20), &bus.ID)
	seedEntry(t, repo, models.EntryKindFuelPurchase, 450, at(2026, 1, 15), nil)
	// Non-fuel entries never show up
	seedEntry(t, repo, models.EntryKindExpense, 9999, at(2026, 1, 12), nil)

	totals, err := repo.FuelTotalsByVehicle(ctx, at(2026, 1, 1), at(2026, 1, 31))
	require.NoError(t, err)
	require.Len(t, totals, 2)

	// Ordered by total descending
	assert.Equal(t, "bus", totals[0].VehicleName)
	assert.Equal(t, int64(1000), totals[0].Total)
	assert.Equal(t, int64(2), totals[0].Entries)

	assert.Equal(t, "", totals[1].VehicleName)
	assert.Equal(t, int64(450), totals[1].Total)
}

func TestFindAllOrdered(t *testing.T) {
	repo := NewLedgerRepository(setupDB(t))

	seedEntry(t, repo, models.EntryKindIncome, 100, at(2026, 1, 20), nil)
	seedEntry(t, repo, models.EntryKindIncome, 200, at(2026, 1, 5), nil)
	seedEntry(t, repo, models.EntryKindIncome, 300, at(2026, 1, 10), nil)

	entries, err := repo.FindAllOrdered(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].OccurredAt.Before(entries[1].OccurredAt))
	assert.True(t, entries[1].OccurredAt.Before(entries[2].OccurredAt))
}
