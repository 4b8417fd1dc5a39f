package services

import (
	"context"
	"time"

	"github.com/nazhim/markaz-api/internal/models"
	"github.com/nazhim/markaz-api/internal/repository"
)

// WalletService owns the revolving cash float sub-ledger. Entries are pure
// appends: no locking, no negative-balance guard, no edits after creation.
type WalletService struct {
	repo repository.WalletRepository
}

// NewWalletService creates a new wallet service
func NewWalletService(repo repository.WalletRepository) *WalletService {
	return &WalletService{repo: repo}
}

// WalletEntryInput carries the fields of a manual wallet entry
type WalletEntryInput struct {
	Type       string    `json:"type"`
	Source     string    `json:"source"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
	TaskID     *uint     `json:"task_id"`
	CreatedBy  string    `json:"-"`
}

// Balance returns credits minus debits of the singleton wallet
func (s *WalletService) Balance(ctx context.Context) (int64, error) {
	wallet, err := s.repo.GetOrCreate(ctx)
	if err != nil {
		return 0, ErrPersistence(err)
	}
	balance, err := s.repo.Balance(ctx, wallet.ID)
	if err != nil {
		return 0, ErrPersistence(err)
	}
	return balance, nil
}

// CreateEntry appends one immutable entry. Reversals are modeled as
// offsetting entries, never as edits.
func (s *WalletService) CreateEntry(ctx context.Context, in WalletEntryInput) (*models.WalletEntry, error) {
	if !models.ValidWalletEntryType(in.Type) {
		return nil, ErrValidation("type", "entry type must be credit or debit")
	}
	if !models.ValidWalletSource(in.Source) {
		return nil, ErrValidation("source", "unknown wallet entry source")
	}
	if in.Amount <= 0 {
		return nil, ErrValidation("amount", "amount must be positive")
	}

	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	wallet, err := s.repo.GetOrCreate(ctx)
	if err != nil {
		return nil, ErrPersistence(err)
	}

	entry := &models.WalletEntry{
		WalletID:   wallet.ID,
		Type:       in.Type,
		Source:     in.Source,
		Amount:     in.Amount,
		OccurredAt: occurredAt,
		TaskID:     in.TaskID,
		CreatedBy:  in.CreatedBy,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, ErrPersistence(err)
	}
	return entry, nil
}

// ListEntries returns all entries of the singleton wallet, newest first
func (s *WalletService) ListEntries(ctx context.Context) ([]models.WalletEntry, error) {
	wallet, err := s.repo.GetOrCreate(ctx)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	entries, err := s.repo.ListEntries(ctx, wallet.ID)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	return entries, nil
}
