package services

import (
	"context"
	"errors"
	"time"

	"github.com/nazhim/markaz-api/internal/calendar"
	"github.com/nazhim/markaz-api/internal/models"
	"github.com/nazhim/markaz-api/internal/repository"
	"github.com/nazhim/markaz-api/pkg/logger"

	"gorm.io/gorm"
)

// LedgerService owns the append-only money-movement ledger
type LedgerService struct {
	repo        repository.LedgerRepository
	vehicleRepo repository.VehicleRepository
}

// NewLedgerService creates a new ledger service
func NewLedgerService(repo repository.LedgerRepository, vehicleRepo repository.VehicleRepository) *LedgerService {
	return &LedgerService{repo: repo, vehicleRepo: vehicleRepo}
}

// AppendInput carries the fields of a new ledger entry
type AppendInput struct {
	Kind        string    `json:"kind"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
	OwnerUserID string    `json:"-"`
	VehicleID   *uint     `json:"vehicle_id"`
}

// operatingKinds are the kinds that make up the operating balance.
var operatingKinds = []string{models.EntryKindIncome, models.EntryKindExpense}

// allKinds additionally counts the fuel sub-ledger.
var allKinds = []string{models.EntryKindIncome, models.EntryKindExpense, models.EntryKindFuelPurchase}

// Append writes a new entry. The balance snapshot is seeded from the most
// recent entry by occurred_at, so backdating an entry leaves snapshots of
// later-dated entries stale until RecomputeAll runs; the ledger does not
// auto-correct this on insert.
func (s *LedgerService) Append(ctx context.Context, in AppendInput) (*models.LedgerEntry, error) {
	if !models.ValidEntryKind(in.Kind) {
		return nil, ErrValidation("kind", "unknown ledger entry kind")
	}
	if in.Amount <= 0 {
		return nil, ErrValidation("amount", "amount must be positive")
	}
	if in.Description == "" {
		return nil, ErrValidation("description", "description is required")
	}
	if in.OccurredAt.IsZero() {
		return nil, ErrValidation("occurred_at", "entry date is required")
	}
	if in.VehicleID != nil {
		if _, err := s.vehicleRepo.FindByID(ctx, *in.VehicleID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound("vehicle")
			}
			return nil, ErrPersistence(err)
		}
	}

	latest, err := s.repo.FindLatestByDate(ctx)
	if err != nil {
		return nil, ErrPersistence(err)
	}

	var balanceBefore int64
	if latest != nil {
		balanceBefore = latest.BalanceAfter
	}

	entry := &models.LedgerEntry{
		Kind:          in.Kind,
		Amount:        in.Amount,
		Description:   in.Description,
		OccurredAt:    in.OccurredAt,
		OwnerUserID:   in.OwnerUserID,
		VehicleID:     in.VehicleID,
		BalanceBefore: balanceBefore,
	}
	entry.BalanceAfter = balanceBefore + entry.SignedAmount()

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, ErrPersistence(err)
	}
	return entry, nil
}

// CurrentBalance is the authoritative balance: a signed sum over non-deleted
// entries, never a stored snapshot. Fuel purchases are excluded unless asked for.
func (s *LedgerService) CurrentBalance(ctx context.Context, includeFuel bool) (int64, error) {
	kinds := operatingKinds
	if includeFuel {
		kinds = allKinds
	}
	balance, err := s.repo.SumSigned(ctx, kinds, nil, nil)
	if err != nil {
		return 0, ErrPersistence(err)
	}
	return balance, nil
}

// RecomputeAll rewrites every entry's balance snapshot by walking the
// non-deleted entries in date order. This is the repair mechanism for
// snapshots gone stale through backdated inserts or deletions. Idempotent.
func (s *LedgerService) RecomputeAll(ctx context.Context) (int, error) {
	entries, err := s.repo.FindAllOrdered(ctx)
	if err != nil {
		return 0, ErrPersistence(err)
	}

	var running int64
	for i := range entries {
		entries[i].BalanceBefore = running
		running += entries[i].SignedAmount()
		entries[i].BalanceAfter = running
	}

	if err := s.repo.UpdateBalances(ctx, entries); err != nil {
		return 0, ErrPersistence(err)
	}

	logger.Info("Ledger recompute finished", "entries", len(entries), "closing_balance", running)
	return len(entries), nil
}

// MonthlyTotals holds the ledger aggregates of one reporting window.
// Fuel purchases are excluded throughout.
type MonthlyTotals struct {
	TotalIncome    int64 `json:"total_income"`
	TotalExpense   int64 `json:"total_expense"`
	OpeningBalance int64 `json:"opening_balance"`
	ClosingBalance int64 `json:"closing_balance"`
}

// MonthlyTotalsFor computes income/expense totals inside the window and the
// opening balance from everything before it
func (s *LedgerService) MonthlyTotalsFor(ctx context.Context, window calendar.MonthWindow) (*MonthlyTotals, error) {
	cutoff := window.Start.Add(-time.Nanosecond)
	opening, err := s.repo.SumSigned(ctx, operatingKinds, nil, &cutoff)
	if err != nil {
		return nil, ErrPersistence(err)
	}

	income, err := s.repo.SumSigned(ctx, []string{models.EntryKindIncome}, &window.Start, &window.End)
	if err != nil {
		return nil, ErrPersistence(err)
	}

	expense, err := s.repo.SumSigned(ctx, []string{models.EntryKindExpense}, &window.Start, &window.End)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	// SumSigned signs expenses negative; report them as a positive total
	expense = -expense

	return &MonthlyTotals{
		TotalIncome:    income,
		TotalExpense:   expense,
		OpeningBalance: opening,
		ClosingBalance: opening + income - expense,
	}, nil
}

// List returns entries with optional kind and date filters
func (s *LedgerService) List(ctx context.Context, kind string, from, to *time.Time) ([]models.LedgerEntry, error) {
	if kind != "" && !models.ValidEntryKind(kind) {
		return nil, ErrValidation("kind", "unknown ledger entry kind")
	}
	entries, err := s.repo.List(ctx, kind, from, to)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	return entries, nil
}

// Delete soft-deletes an entry; the row stays in the table and stored
// snapshots stay stale until the next recompute
func (s *LedgerService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound("ledger entry")
		}
		return ErrPersistence(err)
	}
	return nil
}
