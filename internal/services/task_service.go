package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/nazhim/markaz-api/internal/models"
	"github.com/nazhim/markaz-api/internal/repository"
	"github.com/nazhim/markaz-api/internal/statemachine"
	"github.com/nazhim/markaz-api/internal/storage"
	"github.com/nazhim/markaz-api/pkg/logger"

	"gorm.io/gorm"
)

// TaskService owns the spending task lifecycle: funding, receipts,
// cashbacks and settlement. Every mutation ends with a status recompute.
type TaskService struct {
	repo       repository.TaskRepository
	walletRepo repository.WalletRepository
	store      *storage.LocalStorage
}

// NewTaskService creates a new task service
func NewTaskService(repo repository.TaskRepository, walletRepo repository.WalletRepository, store *storage.LocalStorage) *TaskService {
	return &TaskService{repo: repo, walletRepo: walletRepo, store: store}
}

// CreateTaskInput carries the fields of a new spending task
type CreateTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedBy   string `json:"-"`
}

// FundingInput carries the fields of a funding create or update
type FundingInput struct {
	Amount     int64     `json:"amount"`
	ReceivedAt time.Time `json:"received_at"`
	Source     string    `json:"source"`
	Notes      string    `json:"notes"`
}

// ReceiptItemInput is one submitted receipt line
type ReceiptItemInput struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

// ReceiptInput carries a submitted receipt with its declared total
type ReceiptInput struct {
	Vendor        string             `json:"vendor"`
	TotalAmount   int64              `json:"total_amount"`
	PurchasedAt   time.Time          `json:"purchased_at"`
	AttachmentURL string             `json:"attachment_url"`
	Items         []ReceiptItemInput `json:"items"`
}

// CashbackInput carries a submitted cashback
type CashbackInput struct {
	Amount     int64     `json:"amount"`
	Vendor     string    `json:"vendor"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedBy  string    `json:"-"`
}

// CreateTask creates a new task in draft
func (s *TaskService) CreateTask(ctx context.Context, in CreateTaskInput) (*models.SpendingTask, error) {
	if in.Title == "" {
		return nil, ErrValidation("title", "title is required")
	}

	task := &models.SpendingTask{
		Title:       in.Title,
		Description: in.Description,
		Status:      models.TaskStatusDraft,
		CreatedBy:   in.CreatedBy,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, ErrPersistence(err)
	}
	return task, nil
}

// ListTasks returns tasks, optionally filtered by status
func (s *TaskService) ListTasks(ctx context.Context, status string) ([]models.SpendingTask, error) {
	if status != "" && !models.ValidTaskStatus(status) {
		return nil, ErrValidation("status", "unknown task status")
	}
	tasks, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, ErrPersistence(err)
	}
	return tasks, nil
}

// FindTask loads one task with all its records
func (s *TaskService) FindTask(ctx context.Context, id uint) (*models.SpendingTask, error) {
	return s.loadTask(ctx, id)
}

// GetTaskSummary recomputes the derived summary of a task
func (s *TaskService) GetTaskSummary(ctx context.Context, id uint) (*models.TaskSummary, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := task.Summary()
	return &summary, nil
}

// CreateFunding attaches the single funding record to a task. Funding is
// create-once; later changes go through UpdateFunding.
func (s *TaskService) CreateFunding(ctx context.Context, taskID uint, in FundingInput) (*models.SpendingTask, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.MayMutate() {
		return nil, ErrTaskLocked()
	}
	if task.Funding != nil {
		return nil, ErrFundingAlreadyExists()
	}
	if err := validateFunding(in); err != nil {
		return nil, err
	}

	funding := &models.TaskFunding{
		TaskID:     taskID,
		Amount:     in.Amount,
		ReceivedAt: in.ReceivedAt,
		Source:     in.Source,
		Notes:      in.Notes,
	}
	if err := s.repo.CreateFunding(ctx, funding); err != nil {
		return nil, ErrPersistence(err)
	}

	return s.recompute(ctx, taskID)
}

// UpdateFunding updates the funding record in place
func (s *TaskService) UpdateFunding(ctx context.Context, taskID uint, in FundingInput) (*models.SpendingTask, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.MayMutate() {
		return nil, ErrTaskLocked()
	}
	if task.Funding == nil {
		return nil, ErrNotFound("funding")
	}
	if err := validateFunding(in); err != nil {
		return nil, err
	}

	funding := task.Funding
	funding.Amount = in.Amount
	funding.ReceivedAt = in.ReceivedAt
	funding.Source = in.Source
	funding.Notes = in.Notes
	if err := s.repo.UpdateFunding(ctx, funding); err != nil {
		return nil, ErrPersistence(err)
	}

	return s.recompute(ctx, taskID)
}

func validateFunding(in FundingInput) error {
	if in.Amount <= 0 {
		return ErrValidation("amount", "funding amount must be positive")
	}
	if in.ReceivedAt.IsZero() {
		return ErrValidation("received_at", "funding date is required")
	}
	return nil
}

// CreateReceipt records a purchase against the task budget. The declared
// total must equal the line item sum exactly, in minor units.
func (s *TaskService) CreateReceipt(ctx context.Context, taskID uint, in ReceiptInput) (*models.SpendingTask, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.MayMutate() {
		return nil, ErrTaskLocked()
	}
	if task.Funding == nil || task.Funding.Amount <= 0 {
		return nil, ErrValidation("funding", "task has no funding to spend against")
	}
	if in.TotalAmount <= 0 {
		return nil, ErrValidation("total_amount", "receipt total must be positive")
	}
	if in.PurchasedAt.IsZero() {
		return nil, ErrValidation("purchased_at", "purchase date is required")
	}
	if len(in.Items) == 0 {
		return nil, ErrValidation("items", "at least one line item is required")
	}

	var itemsTotal int64
	items := make([]models.ReceiptItem, 0, len(in.Items))
	for i, it := range in.Items {
		if it.Description == "" {
			return nil, ErrValidation(fmt.Sprintf("items[%d].description", i), "line item description is required")
		}
		if it.Quantity <= 0 {
			return nil, ErrValidation(fmt.Sprintf("items[%d].quantity", i), "line item quantity must be positive")
		}
		if it.UnitPrice < 0 {
			return nil, ErrValidation(fmt.Sprintf("items[%d].unit_price", i), "line item unit price cannot be negative")
		}
		itemsTotal += it.Quantity * it.UnitPrice
		items = append(items, models.ReceiptItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	if itemsTotal != in.TotalAmount {
		return nil, ErrReceiptTotalMismatch()
	}

	receipt := &models.TaskReceipt{
		TaskID:        taskID,
		Vendor:        in.Vendor,
		TotalAmount:   in.TotalAmount,
		PurchasedAt:   in.PurchasedAt,
		AttachmentURL: in.AttachmentURL,
		Items:         items,
	}
	if err := s.repo.CreateReceipt(ctx, receipt); err != nil {
		return nil, ErrPersistence(err)
	}

	return s.recompute(ctx, taskID)
}

// DeleteReceipt removes a receipt and re-derives the task status
func (s *TaskService) DeleteReceipt(ctx context.Context, taskID, receiptID uint) (*models.SpendingTask, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.MayMutate() {
		return nil, ErrTaskLocked()
	}

	receipt, err := s.findReceiptOfTask(ctx, taskID, receiptID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteReceipt(ctx, receipt.ID); err != nil {
		return nil, ErrPersistence(err)
	}

	return s.recompute(ctx, taskID)
}

// AttachReceiptFile stores an uploaded receipt scan and records its path.
// Uploads are allowed while the task is mutable; they never change totals,
// so no status recompute runs.
func (s *TaskService) AttachReceiptFile(ctx context.Context, taskID, receiptID uint, file multipart.File, header *multipart.FileHeader) (*models.TaskReceipt, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.MayMutate() {
		return nil, ErrTaskLocked()
	}
	if header.Size > storage.MaxFileSize() {
		return nil, ErrValidation("file", "file exceeds the maximum upload size")
	}
	if !storage.IsValidContentType(header.Header.Get("Content-Type")) {
		return nil, ErrValidation("file", "unsupported file type")
	}

	receipt, err := s.findReceiptOfTask(ctx, taskID, receiptID)
	if err != nil {
		return nil, err
	}

	relPath, err := s.store.Upload(file, header, "receipts")
	if err != nil {
		return nil, ErrPersistence(err)
	}

	// Replace the previous scan if one was attached
	if receipt.AttachmentURL != "" {
		if err := s.store.Delete(receipt.AttachmentURL); err != nil {
			logger.Warn(fmt.Sprintf("failed to remove previous receipt attachment %s: %v", receipt.AttachmentURL, err))
		}
	}

	receipt.AttachmentURL = relPath
	if err := s.repo.UpdateReceipt(ctx, receipt); err != nil {
		return nil, ErrPersistence(err)
	}
	return receipt, nil
}

// CreateCashback records vendor money returned against a receipt and credits
// the wallet in the same transaction; both rows land or neither does.
func (s *TaskService) CreateCashback(ctx context.Context, taskID, receiptID uint, in CashbackInput) (*models.Cashback, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.MayMutate() {
		return nil, ErrTaskLocked()
	}
	if in.Amount <= 0 {
		return nil, ErrValidation("amount", "cashback amount must be positive")
	}

	receipt, err := s.findReceiptOfTask(ctx, taskID, receiptID)
	if err != nil {
		return nil, err
	}

	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx)
	if err != nil {
		return nil, ErrPersistence(err)
	}

	cashback := &models.Cashback{
		ReceiptID:  receipt.ID,
		Amount:     in.Amount,
		Vendor:     in.Vendor,
		OccurredAt: occurredAt,
	}
	walletEntry := &models.WalletEntry{
		WalletID:   wallet.ID,
		Type:       models.WalletEntryCredit,
		Source:     models.WalletSourceCashback,
		Amount:     in.Amount,
		OccurredAt: occurredAt,
		TaskID:     &taskID,
		CreatedBy:  in.CreatedBy,
	}
	if err := s.repo.CreateCashbackWithWallet(ctx, cashback, walletEntry); err != nil {
		return nil, ErrPersistence(err)
	}
	return cashback, nil
}

// MarkRefundDone completes the refund settlement, freezing the amount due
// at this moment and locking the task
func (s *TaskService) MarkRefundDone(ctx context.Context, taskID uint, notes string) (*models.SpendingTask, error) {
	return s.markSettlementDone(ctx, taskID, models.SettlementTypeRefund, notes)
}

// MarkReimburseDone completes the reimburse settlement, freezing the amount
// due at this moment and locking the task
func (s *TaskService) MarkReimburseDone(ctx context.Context, taskID uint, notes string) (*models.SpendingTask, error) {
	return s.markSettlementDone(ctx, taskID, models.SettlementTypeReimburse, notes)
}

func (s *TaskService) markSettlementDone(ctx context.Context, taskID uint, settlementType, notes string) (*models.SpendingTask, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	// Re-marking the already completed settlement is a no-op
	if existing := task.SettlementOf(settlementType); existing != nil && existing.IsDone() {
		return task, nil
	}
	if !task.MayMutate() {
		return nil, ErrTaskLocked()
	}

	summary := task.Summary()
	var due int64
	if settlementType == models.SettlementTypeRefund {
		due = summary.RefundDue
	} else {
		due = summary.ReimburseDue
	}
	if due <= 0 {
		return nil, ErrSettlementNotRequired()
	}

	now := time.Now()
	settlement := &models.TaskSettlement{
		TaskID: taskID,
		Type:   settlementType,
		Amount: due,
		Status: models.SettlementStatusDone,
		DoneAt: &now,
		Notes:  notes,
	}
	if err := s.repo.UpsertSettlement(ctx, settlement); err != nil {
		return nil, ErrPersistence(err)
	}

	logger.Info("Settlement completed", "task_id", taskID, "type", settlementType, "amount", due)
	return s.recompute(ctx, taskID)
}

// RepairStatuses re-derives every task's status from its records. The stored
// status is only a cache; this sweep fixes any drift left by partial failures.
func (s *TaskService) RepairStatuses(ctx context.Context) (int, error) {
	tasks, err := s.repo.List(ctx, "")
	if err != nil {
		return 0, ErrPersistence(err)
	}

	repaired := 0
	for i := range tasks {
		task, err := s.recompute(ctx, tasks[i].ID)
		if err != nil {
			return repaired, err
		}
		if task.Status != tasks[i].Status {
			logger.Info("Task status repaired", "task_id", task.ID, "from", tasks[i].Status, "to", task.Status)
			repaired++
		}
	}
	return repaired, nil
}

// recompute re-derives the task status and keeps pending settlement rows in
// sync with the current dues: pending rows are upserted while an amount is
// due and removed when the due drops to zero. Done rows are never touched.
func (s *TaskService) recompute(ctx context.Context, taskID uint) (*models.SpendingTask, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	summary := task.Summary()
	target := models.DeriveStatus(task.Funding != nil, len(task.Receipts) > 0, summary)

	var upserts []models.TaskSettlement
	var removePending []string
	if !summary.IsLocked {
		upserts, removePending = settlementSync(task, summary)
	}

	fsm := statemachine.NewTaskFSM(task)
	if err := fsm.ApplyDerived(ctx, target); err != nil {
		return nil, fmt.Errorf("status recompute for task %d: %w", taskID, err)
	}

	if err := s.repo.SyncDerivedState(ctx, task, upserts, removePending); err != nil {
		return nil, ErrPersistence(err)
	}

	return s.loadTask(ctx, taskID)
}

func settlementSync(task *models.SpendingTask, summary models.TaskSummary) (upserts []models.TaskSettlement, removePending []string) {
	// A due exists only once receipts are in. A funded task with no receipts
	// is still in its spending phase; the whole budget is not a refund due.
	refundDue, reimburseDue := summary.RefundDue, summary.ReimburseDue
	if len(task.Receipts) == 0 {
		refundDue, reimburseDue = 0, 0
	}

	dues := map[string]int64{
		models.SettlementTypeRefund:    refundDue,
		models.SettlementTypeReimburse: reimburseDue,
	}
	for _, settlementType := range []string{models.SettlementTypeRefund, models.SettlementTypeReimburse} {
		due := dues[settlementType]
		existing := task.SettlementOf(settlementType)
		if due > 0 {
			upserts = append(upserts, models.TaskSettlement{
				TaskID: task.ID,
				Type:   settlementType,
				Amount: due,
				Status: models.SettlementStatusPending,
			})
		} else if existing != nil && !existing.IsDone() {
			removePending = append(removePending, settlementType)
		}
	}
	return upserts, removePending
}

func (s *TaskService) loadTask(ctx context.Context, id uint) (*models.SpendingTask, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("task")
		}
		return nil, ErrPersistence(err)
	}
	return task, nil
}

func (s *TaskService) findReceiptOfTask(ctx context.Context, taskID, receiptID uint) (*models.TaskReceipt, error) {
	receipt, err := s.repo.FindReceipt(ctx, receiptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("receipt")
		}
		return nil, ErrPersistence(err)
	}
	if receipt.TaskID != taskID {
		return nil, ErrNotFound("receipt")
	}
	return receipt, nil
}
