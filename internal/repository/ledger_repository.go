package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nazhim/markaz-api/internal/models"

	"gorm.io/gorm"
)

// FuelVehicleTotal is one row of the per-vehicle fuel breakdown
type FuelVehicleTotal struct {
	VehicleID   *uint  `json:"vehicle_id"`
	VehicleName string `json:"vehicle_name"`
	Total       int64  `json:"total"`
	Entries     int64  `json:"entries"`
}

// LedgerRepository defines the interface for ledger entry data access
type LedgerRepository interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	FindByID(ctx context.Context, id uint) (*models.LedgerEntry, error)
	FindLatestByDate(ctx context.Context) (*models.LedgerEntry, error)
	FindAllOrdered(ctx context.Context) ([]models.LedgerEntry, error)
	List(ctx context.Context, kind string, from, to *time.Time) ([]models.LedgerEntry, error)
	UpdateBalances(ctx context.Context, entries []models.LedgerEntry) error
	SoftDelete(ctx context.Context, id uint) error
	SumSigned(ctx context.Context, kinds []string, from, to *time.Time) (int64, error)
	FuelTotalsByVehicle(ctx context.Context, from, to time.Time) ([]FuelVehicleTotal, error)
}

// ledgerRepository handles database operations for ledger entries
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ledgerRepository) FindByID(ctx context.Context, id uint) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).Preload("Vehicle").First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindLatestByDate returns the most recent non-deleted entry ordered by
// occurred_at. Returns (nil, nil) when the ledger is empty.
func (r *ledgerRepository) FindLatestByDate(ctx context.Context) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Order("occurred_at DESC, id DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindAllOrdered returns all non-deleted entries in recomputation order
func (r *ledgerRepository) FindAllOrdered(ctx context.Context) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Order("occurred_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *ledgerRepository) List(ctx context.Context, kind string, from, to *time.Time) ([]models.LedgerEntry, error) {
	q := r.db.WithContext(ctx).Preload("Vehicle").Order("occurred_at DESC, id DESC")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if from != nil {
		q = q.Where("occurred_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("occurred_at <= ?", *to)
	}

	var entries []models.LedgerEntry
	err := q.Find(&entries).Error
	return entries, err
}

// UpdateBalances rewrites the balance snapshots of the given entries in a
// single transaction so a recompute pass is applied all-or-nothing.
func (r *ledgerRepository) UpdateBalances(ctx context.Context, entries []models.LedgerEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			err := tx.Model(&models.LedgerEntry{}).
				Where("id = ?", entries[i].ID).
				Updates(map[string]interface{}{
					"balance_before": entries[i].BalanceBefore,
					"balance_after":  entries[i].BalanceAfter,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// SoftDelete marks the entry deleted; rows are never removed from the table
func (r *ledgerRepository) SoftDelete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.LedgerEntry{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SumSigned sums entries of the given kinds with income positive and
// expense/fuel negative, over the optional date range. This is the
// authoritative balance read path; stored snapshots are never consulted.
func (r *ledgerRepository) SumSigned(ctx context.Context, kinds []string, from, to *time.Time) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(CASE WHEN kind = ? THEN amount ELSE -amount END), 0) as total", models.EntryKindIncome).
		Where("kind IN ?", kinds)
	if from != nil {
		q = q.Where("occurred_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("occurred_at <= ?", *to)
	}

	var result struct {
		Total int64
	}
	err := q.Scan(&result).Error
	return result.Total, err
}

// FuelTotalsByVehicle groups fuel purchases in the window by vehicle
func (r *ledgerRepository) FuelTotalsByVehicle(ctx context.Context, from, to time.Time) ([]FuelVehicleTotal, error) {
	var totals []FuelVehicleTotal
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("ledger_entries.vehicle_id, COALESCE(vehicles.name, '') as vehicle_name, SUM(ledger_entries.amount) as total, COUNT(*) as entries").
		Joins("LEFT JOIN vehicles ON vehicles.id = ledger_entries.vehicle_id").
		Where("ledger_entries.kind = ?", models.EntryKindFuelPurchase).
		Where("ledger_entries.occurred_at BETWEEN ? AND ?", from, to).
		Group("ledger_entries.vehicle_id, vehicles.name").
		Order("total DESC").
		Scan(&totals).Error
	return totals, err
}
