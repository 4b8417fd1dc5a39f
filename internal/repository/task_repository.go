package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nazhim/markaz-api/internal/models"

	"gorm.io/gorm"
)

// TaskRepository defines the interface for spending task data access.
// Multi-step writes (cashback + wallet credit, status + settlement sync)
// run inside one transaction here so partial application cannot happen.
type TaskRepository interface {
	Create(ctx context.Context, task *models.SpendingTask) error
	FindByID(ctx context.Context, id uint) (*models.SpendingTask, error)
	List(ctx context.Context, status string) ([]models.SpendingTask, error)
	ListFundedInWindow(ctx context.Context, from, to time.Time) ([]models.SpendingTask, error)
	ListUnfundedCreatedInWindow(ctx context.Context, from, to time.Time) ([]models.SpendingTask, error)
	CreateFunding(ctx context.Context, funding *models.TaskFunding) error
	UpdateFunding(ctx context.Context, funding *models.TaskFunding) error
	CreateReceipt(ctx context.Context, receipt *models.TaskReceipt) error
	FindReceipt(ctx context.Context, id uint) (*models.TaskReceipt, error)
	UpdateReceipt(ctx context.Context, receipt *models.TaskReceipt) error
	DeleteReceipt(ctx context.Context, id uint) error
	CreateCashbackWithWallet(ctx context.Context, cashback *models.Cashback, entry *models.WalletEntry) error
	UpsertSettlement(ctx context.Context, settlement *models.TaskSettlement) error
	SyncDerivedState(ctx context.Context, task *models.SpendingTask, upserts []models.TaskSettlement, removePendingTypes []string) error
}

// taskRepository handles database operations for spending tasks
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *models.SpendingTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID loads a task with everything its summary derivation needs
func (r *taskRepository) FindByID(ctx context.Context, id uint) (*models.SpendingTask, error) {
	var task models.SpendingTask
	err := r.db.WithContext(ctx).
		Preload("Funding").
		Preload("Receipts").
		Preload("Receipts.Items").
		Preload("Receipts.Cashbacks").
		Preload("Settlements").
		First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, status string) ([]models.SpendingTask, error) {
	q := r.db.WithContext(ctx).
		Preload("Funding").
		Preload("Receipts").
		Preload("Settlements").
		Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var tasks []models.SpendingTask
	err := q.Find(&tasks).Error
	return tasks, err
}

// ListFundedInWindow selects tasks whose funding was received in the window.
// The filter is on funding.received_at, not task.created_at.
func (r *taskRepository) ListFundedInWindow(ctx context.Context, from, to time.Time) ([]models.SpendingTask, error) {
	var tasks []models.SpendingTask
	err := r.db.WithContext(ctx).
		Joins("JOIN task_fundings ON task_fundings.task_id = spending_tasks.id").
		Where("task_fundings.received_at BETWEEN ? AND ?", from, to).
		Preload("Funding").
		Preload("Receipts").
		Preload("Settlements").
		Order("task_fundings.received_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// ListUnfundedCreatedInWindow selects tasks created in the window that still
// have no funding record at all
func (r *taskRepository) ListUnfundedCreatedInWindow(ctx context.Context, from, to time.Time) ([]models.SpendingTask, error) {
	var tasks []models.SpendingTask
	err := r.db.WithContext(ctx).
		Where("spending_tasks.created_at BETWEEN ? AND ?", from, to).
		Where("NOT EXISTS (SELECT 1 FROM task_fundings WHERE task_fundings.task_id = spending_tasks.id)").
		Order("spending_tasks.created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *taskRepository) CreateFunding(ctx context.Context, funding *models.TaskFunding) error {
	return r.db.WithContext(ctx).Create(funding).Error
}

func (r *taskRepository) UpdateFunding(ctx context.Context, funding *models.TaskFunding) error {
	return r.db.WithContext(ctx).Save(funding).Error
}

func (r *taskRepository) CreateReceipt(ctx context.Context, receipt *models.TaskReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *taskRepository) FindReceipt(ctx context.Context, id uint) (*models.TaskReceipt, error) {
	var receipt models.TaskReceipt
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Cashbacks").
		First(&receipt, id).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *taskRepository) UpdateReceipt(ctx context.Context, receipt *models.TaskReceipt) error {
	return r.db.WithContext(ctx).Save(receipt).Error
}

// DeleteReceipt removes a receipt with its line items and cashbacks
func (r *taskRepository) DeleteReceipt(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("receipt_id = ?", id).Delete(&models.ReceiptItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("receipt_id = ?", id).Delete(&models.Cashback{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.TaskReceipt{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CreateCashbackWithWallet writes the cashback and its wallet credit in one
// transaction: both rows exist afterwards or neither does.
func (r *taskRepository) CreateCashbackWithWallet(ctx context.Context, cashback *models.Cashback, entry *models.WalletEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cashback).Error; err != nil {
			return err
		}
		entry.CashbackID = &cashback.ID
		return tx.Create(entry).Error
	})
}

// UpsertSettlement finds the settlement by (task_id, type) and updates it,
// or creates it when missing
func (r *taskRepository) UpsertSettlement(ctx context.Context, settlement *models.TaskSettlement) error {
	return upsertSettlement(r.db.WithContext(ctx), settlement)
}

func upsertSettlement(db *gorm.DB, settlement *models.TaskSettlement) error {
	var existing models.TaskSettlement
	err := db.
		Where("task_id = ? AND type = ?", settlement.TaskID, settlement.Type).
		First(&existing).Error

	if err == nil {
		existing.Amount = settlement.Amount
		existing.Status = settlement.Status
		existing.DoneAt = settlement.DoneAt
		existing.Notes = settlement.Notes
		*settlement = existing
		return db.Save(&existing).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(settlement).Error
}

// SyncDerivedState persists a recomputed status together with the settlement
// rows it implies. Done settlements are never modified here; only pending
// rows of the named types are removed.
func (r *taskRepository) SyncDerivedState(ctx context.Context, task *models.SpendingTask, upserts []models.TaskSettlement, removePendingTypes []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.SpendingTask{}).
			Where("id = ?", task.ID).
			Update("status", task.Status).Error
		if err != nil {
			return err
		}

		for i := range upserts {
			if err := upsertSettlement(tx, &upserts[i]); err != nil {
				return err
			}
		}

		for _, settlementType := range removePendingTypes {
			err := tx.
				Where("task_id = ? AND type = ? AND status = ?", task.ID, settlementType, models.SettlementStatusPending).
				Delete(&models.TaskSettlement{}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
