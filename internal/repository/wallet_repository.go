package repository

import (
	"context"

	"github.com/nazhim/markaz-api/internal/models"

	"gorm.io/gorm"
)

// WalletRepository defines the interface for wallet data access
type WalletRepository interface {
	GetOrCreate(ctx context.Context) (*models.Wallet, error)
	CreateEntry(ctx context.Context, entry *models.WalletEntry) error
	ListEntries(ctx context.Context, walletID uint) ([]models.WalletEntry, error)
	Balance(ctx context.Context, walletID uint) (int64, error)
}

// walletRepository handles database operations for the wallet sub-ledger
type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

// GetOrCreate returns the singleton wallet, creating it on first use.
// The unique index on name keeps concurrent first calls race-safe.
func (r *walletRepository) GetOrCreate(ctx context.Context) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where(models.Wallet{Name: models.DefaultWalletName}).
		FirstOrCreate(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *walletRepository) CreateEntry(ctx context.Context, entry *models.WalletEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *walletRepository) ListEntries(ctx context.Context, walletID uint) ([]models.WalletEntry, error) {
	var entries []models.WalletEntry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("occurred_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}

// Balance is credits minus debits over all entries of the wallet
func (r *walletRepository) Balance(ctx context.Context, walletID uint) (int64, error) {
	var result struct {
		Balance int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.WalletEntry{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE -amount END), 0) as balance", models.WalletEntryCredit).
		Where("wallet_id = ?", walletID).
		Scan(&result).Error
	return result.Balance, err
}
