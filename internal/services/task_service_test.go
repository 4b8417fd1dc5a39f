package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/nazhim/markaz-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/gorm"
)

// Mock TaskRepository backed by in-memory maps. Mirrors the transactional
// guarantees of the real repository closely enough for service tests.
type mockTaskRepository struct {
	tasks         map[uint]*models.SpendingTask
	fundings      map[uint]*models.TaskFunding
	receipts      map[uint]*models.TaskReceipt
	settlements   []*models.TaskSettlement
	walletEntries []models.WalletEntry
	nextID        uint
}

func newMockTaskRepository() *mockTaskRepository {
	return &mockTaskRepository{
		tasks:    map[uint]*models.SpendingTask{},
		fundings: map[uint]*models.TaskFunding{},
		receipts: map[uint]*models.TaskReceipt{},
		nextID:   1,
	}
}

func (m *mockTaskRepository) id() uint {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockTaskRepository) Create(ctx context.Context, task *models.SpendingTask) error {
	task.ID = m.id()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	stored := *task
	m.tasks[task.ID] = &stored
	return nil
}

func (m *mockTaskRepository) FindByID(ctx context.Context, id uint) (*models.SpendingTask, error) {
	stored, ok := m.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	task := *stored

	if f, ok := m.fundings[id]; ok {
		funding := *f
		task.Funding = &funding
	}

	var receiptIDs []uint
	for rid, r := range m.receipts {
		if r.TaskID == id {
			receiptIDs = append(receiptIDs, rid)
		}
	}
	sort.Slice(receiptIDs, func(i, j int) bool { return receiptIDs[i] < receiptIDs[j] })
	for _, rid := range receiptIDs {
		task.Receipts = append(task.Receipts, *m.receipts[rid])
	}

	for _, s := range m.settlements {
		if s.TaskID == id {
			task.Settlements = append(task.Settlements, *s)
		}
	}
	return &task, nil
}

func (m *mockTaskRepository) List(ctx context.Context, status string) ([]models.SpendingTask, error) {
	var out []models.SpendingTask
	for _, task := range m.tasks {
		if status == "" || task.Status == status {
			full, _ := m.FindByID(ctx, task.ID)
			out = append(out, *full)
		}
	}
	return out, nil
}

func (m *mockTaskRepository) ListFundedInWindow(ctx context.Context, from, to time.Time) ([]models.SpendingTask, error) {
	var out []models.SpendingTask
	for taskID, f := range m.fundings {
		if f.ReceivedAt.Before(from) || f.ReceivedAt.After(to) {
			continue
		}
		full, _ := m.FindByID(ctx, taskID)
		out = append(out, *full)
	}
	return out, nil
}

func (m *mockTaskRepository) ListUnfundedCreatedInWindow(ctx context.Context, from, to time.Time) ([]models.SpendingTask, error) {
	var out []models.SpendingTask
	for id, task := range m.tasks {
		if _, funded := m.fundings[id]; funded {
			continue
		}
		if task.CreatedAt.Before(from) || task.CreatedAt.After(to) {
			continue
		}
		full, _ := m.FindByID(ctx, id)
		out = append(out, *full)
	}
	return out, nil
}

func (m *mockTaskRepository) CreateFunding(ctx context.Context, funding *models.TaskFunding) error {
	funding.ID = m.id()
	stored := *funding
	m.fundings[funding.TaskID] = &stored
	return nil
}

func (m *mockTaskRepository) UpdateFunding(ctx context.Context, funding *models.TaskFunding) error {
	stored := *funding
	m.fundings[funding.TaskID] = &stored
	return nil
}

func (m *mockTaskRepository) CreateReceipt(ctx context.Context, receipt *models.TaskReceipt) error {
	receipt.ID = m.id()
	for i := range receipt.Items {
		receipt.Items[i].ID = m.id()
		receipt.Items[i].ReceiptID = receipt.ID
	}
	stored := *receipt
	m.receipts[receipt.ID] = &stored
	return nil
}

func (m *mockTaskRepository) FindReceipt(ctx context.Context, id uint) (*models.TaskReceipt, error) {
	stored, ok := m.receipts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	receipt := *stored
	return &receipt, nil
}

func (m *mockTaskRepository) UpdateReceipt(ctx context.Context, receipt *models.TaskReceipt) error {
	if _, ok := m.receipts[receipt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *receipt
	m.receipts[receipt.ID] = &stored
	return nil
}

func (m *mockTaskRepository) DeleteReceipt(ctx context.Context, id uint) error {
	delete(m.receipts, id)
	return nil
}

func (m *mockTaskRepository) CreateCashbackWithWallet(ctx context.Context, cashback *models.Cashback, entry *models.WalletEntry) error {
	cashback.ID = m.id()
	if receipt, ok := m.receipts[cashback.ReceiptID]; ok {
		receipt.Cashbacks = append(receipt.Cashbacks, *cashback)
	}
	entry.ID = m.id()
	entry.CashbackID = &cashback.ID
	m.walletEntries = append(m.walletEntries, *entry)
	return nil
}

func (m *mockTaskRepository) UpsertSettlement(ctx context.Context, settlement *models.TaskSettlement) error {
	for _, existing := range m.settlements {
		if existing.TaskID == settlement.TaskID && existing.Type == settlement.Type {
			existing.Amount = settlement.Amount
			existing.Status = settlement.Status
			existing.DoneAt = settlement.DoneAt
			existing.Notes = settlement.Notes
			*settlement = *existing
			return nil
		}
	}
	settlement.ID = m.id()
	stored := *settlement
	m.settlements = append(m.settlements, &stored)
	return nil
}

func (m *mockTaskRepository) SyncDerivedState(ctx context.Context, task *models.SpendingTask, upserts []models.TaskSettlement, removePendingTypes []string) error {
	if stored, ok := m.tasks[task.ID]; ok {
		stored.Status = task.Status
	}
	for i := range upserts {
		if err := m.UpsertSettlement(ctx, &upserts[i]); err != nil {
			return err
		}
	}
	for _, settlementType := range removePendingTypes {
		kept := m.settlements[:0]
		for _, s := range m.settlements {
			if s.TaskID == task.ID && s.Type == settlementType && s.Status == models.SettlementStatusPending {
				continue
			}
			kept = append(kept, s)
		}
		m.settlements = kept
	}
	return nil
}

// Mock WalletRepository
type mockWalletRepository struct {
	wallet  models.Wallet
	entries []models.WalletEntry
}

func newMockWalletRepository() *mockWalletRepository {
	return &mockWalletRepository{wallet: models.Wallet{ID: 1, Name: models.DefaultWalletName}}
}

func (m *mockWalletRepository) GetOrCreate(ctx context.Context) (*models.Wallet, error) {
	w := m.wallet
	return &w, nil
}

func (m *mockWalletRepository) CreateEntry(ctx context.Context, entry *models.WalletEntry) error {
	entry.ID = uint(len(m.entries) + 1)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockWalletRepository) ListEntries(ctx context.Context, walletID uint) ([]models.WalletEntry, error) {
	out := make([]models.WalletEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *mockWalletRepository) Balance(ctx context.Context, walletID uint) (int64, error) {
	var sum int64
	for i := range m.entries {
		sum += m.entries[i].SignedAmount()
	}
	return sum, nil
}

func newTaskService() (*TaskService, *mockTaskRepository, *mockWalletRepository) {
	repo := newMockTaskRepository()
	wallets := newMockWalletRepository()
	return NewTaskService(repo, wallets, nil), repo, wallets
}

func fundedTask(t *testing.T, svc *TaskService, budget int64) *models.SpendingTask {
	t.Helper()
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, CreateTaskInput{Title: "iftar groceries", CreatedBy: "user-1"})
	require.NoError(t, err)

	task, err = svc.CreateFunding(ctx, task.ID, FundingInput{Amount: budget, ReceivedAt: day(2026, 2, 1)})
	require.NoError(t, err)
	return task
}

func receiptFor(total int64) ReceiptInput {
	return ReceiptInput{
		Vendor:      "market",
		TotalAmount: total,
		PurchasedAt: day(2026, 2, 3),
		Items:       []ReceiptItemInput{{Description: "goods", Quantity: 1, UnitPrice: total}},
	}
}

func TestCreateTaskStartsDraft(t *testing.T) {
	svc, _, _ := newTaskService()

	task, err := svc.CreateTask(context.Background(), CreateTaskInput{Title: "iftar groceries", CreatedBy: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDraft, task.Status)

	_, err = svc.CreateTask(context.Background(), CreateTaskInput{})
	require.Error(t, err)
	svcErr, _ := AsError(err)
	assert.Equal(t, CodeValidationFailed, svcErr.Code)
}

func TestCreateFundingMovesToFunded(t *testing.T) {
	svc, _, _ := newTaskService()
	task := fundedTask(t, svc, 50000)

	assert.Equal(t, models.TaskStatusFunded, task.Status)
	require.NotNil(t, task.Funding)
	assert.Equal(t, int64(50000), task.Funding.Amount)
}

// A funded task with zero receipts has nothing due yet: the untouched budget
// is not a pending refund
func TestCreateFundingCreatesNoSettlementRows(t *testing.T) {
	svc, repo, _ := newTaskService()
	task := fundedTask(t, svc, 50000)

	assert.Equal(t, models.TaskStatusFunded, task.Status)
	assert.Empty(t, task.Settlements)
	assert.Empty(t, repo.settlements)
}

func TestCreateFundingTwiceFails(t *testing.T) {
	svc, _, _ := newTaskService()
	task := fundedTask(t, svc, 50000)

	_, err := svc.CreateFunding(context.Background(), task.ID, FundingInput{Amount: 100, ReceivedAt: day(2026, 2, 2)})
	require.Error(t, err)
	svcErr, _ := AsError(err)
	assert.Equal(t, CodeFundingAlreadyExists, svcErr.Code)
}

func TestUpdateFundingRederivesStatus(t *testing.T) {
	svc, _, _ := newTaskService()
	ctx := context.Background()
	task := fundedTask(t, svc, 50000)

	task, err := svc.CreateReceipt(ctx, task.ID, receiptFor(50000))
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSettled, task.Status)

	// Raising the budget reopens a refund
	task, err = svc.UpdateFunding(ctx, task.ID, FundingInput{Amount: 60000, ReceivedAt: day(2026, 2, 1)})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusNeedsRefund, task.Status)
}

func TestCreateReceiptRequiresFunding(t *testing.T) {
	svc, _, _ := newTaskService()
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, CreateTaskInput{Title: "unfunded", CreatedBy: "user-1"})
	require.NoError(t, err)

	_, err = svc.CreateReceipt(ctx, task.ID, receiptFor(1000))
	require.Error(t, err)
	svcErr, _ := AsError(err)
	assert.Equal(t, CodeValidationFailed, svcErr.Code)
	assert.Equal(t, "funding", svcErr.Field)
}

func TestCreateReceiptTotalMismatch(t *testing.T) {
	svc, _, _ := newTaskService()
	task := fundedTask(t, svc, 50000)

	in := ReceiptInput{
		Vendor:      "market",
		TotalAmount: 5000,
		PurchasedAt: day(2026, 2, 3),
		Items:       []ReceiptItemInput{{Description: "goods", Quantity: 2, UnitPrice: 2499}},
	}
	_, err := svc.CreateReceipt(context.Background(), task.ID, in)
	require.Error(t, err)
	svcErr, _ := AsError(err)
	assert.Equal(t, CodeReceiptTotalMismatch, svcErr.Code)
}

func TestUnderspendNeedsRefund(t *testing.T) {
	svc, repo, _ := newTaskService()
	task := fundedTask(t, svc, 50000)

	task, err := svc.CreateReceipt(context.Background(), task.ID, receiptFor(42000))
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusNeedsRefund, task.Status)

	// A pending refund row tracks the due automatically
	require.Len(t, repo.settlements, 1)
	settlement := repo.settlements[0]
	assert.Equal(t, models.SettlementTypeRefund, settlement.Type)
	assert.Equal(t, models.SettlementStatusPending, settlement.Status)
	assert.Equal(t, int64(8000), settlement.Amount)
}

func TestOverspendNeedsReimburse(t *testing.T) {
	svc, repo, _ := newTaskService()
	task := fundedTask(t, svc, 20000)

	task, err := svc.CreateReceipt(context.Background(), task.ID, receiptFor(26500))
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusNeedsReimburse, task.Status)

	require.Len(t, repo.settlements, 1)
	assert.Equal(t, models.SettlementTypeReimburse, repo.settlements[0].Type)
	assert.Equal(t, int64(6500), repo.settlements[0].Amount)
}

func TestExactSpendSettlesWithoutRows(t *testing.T) {
	svc, repo, _ := newTaskService()
	task := fundedTask(t, svc, 30000)

	task, err := svc.CreateReceipt(context.Background(), task.ID, receiptFor(30000))
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSettled, task.Status)
	assert.Empty(t, repo.settlements)
}

func TestDeleteReceiptClearsPendingSettlement(t *testing.T) {
	svc, repo, _ := newTaskService()
	ctx := context.Background()
	task := fundedTask(t, svc, 50000)

	task, err := svc.CreateReceipt(ctx, task.ID, receiptFor(42000))
	require.NoError(t, err)
	require.Len(t, repo.settlements, 1)
	receiptID := task.Receipts[0].ID

	task, err = svc.DeleteReceipt(ctx, task.ID, receiptID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFunded, task.Status)
	assert.Empty(t, repo.settlements)
}

// Adding receipts can flip the direction; the stale pending row of the old
// direction must disappear
func TestReceiptsFlipSettlementDirection(t *testing.T) {
	svc, repo, _ := newTaskService()
	ctx := context.Background()
	task := fundedTask(t, svc, 50000)

	task, err := svc.CreateReceipt(ctx, task.ID, receiptFor(42000))
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusNeedsRefund, task.Status)

	task, err = svc.CreateReceipt(ctx, task.ID, receiptFor(15000))
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusNeedsReimburse, task.Status)

	require.Len(t, repo.settlements, 1)
	assert.Equal(t, models.SettlementTypeReimburse, repo.settlements[0].Type)
	assert.Equal(t, int64(7000), repo.settlements[0].Amount)
}

func TestMarkRefundDoneLocksTask(t *testing.T) {
	svc, _, _ := newTaskService()
	ctx := context.Background()
	task := fundedTask(t, svc, 50000)

	task, err := svc.CreateReceipt(ctx, task.ID, receiptFor(42000))
	require.NoError(t, err)

	task, err = svc.MarkRefundDone(ctx, task.ID, "returned to treasurer")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusSettled, task.Status)
	assert.True(t, task.IsLocked())

	refund := task.SettlementOf(models.SettlementTypeRefund)
	require.NotNil(t, refund)
	assert.True(t, refund.IsDone())
	assert.Equal(t, int64(8000), refund.Amount)
	assert.NotNil(t, refund.DoneAt)

	// Every mutation is rejected from here on
	_, err = svc.CreateReceipt(ctx, task.ID, receiptFor(100))
	svcErr, _ := AsError(err)
	assert.Equal(t, CodeTaskLocked, svcErr.Code)

	_, err = svc.UpdateFunding(ctx, task.ID, FundingInput{Amount: 1, ReceivedAt: day(2026, 2, 1)})
	svcErr, _ = AsError(err)
	assert.Equal(t, CodeTaskLocked, svcErr.Code)

	_, err = svc.DeleteReceipt(ctx, task.ID, task.Receipts[0].ID)
	svcErr, _ = AsError(err)
	assert.Equal(t, CodeTaskLocked, svcErr.Code)

	_, err = svc.CreateCashback(ctx, task.ID, task.Receipts[0].ID, CashbackInput{Amount: 100, CreatedBy: "user-1"})
	svcErr, _ = AsError(err)
	assert.Equal(t, CodeTaskLocked, svcErr.Code)

	_, err = svc.AttachReceiptFile(ctx, task.ID, task.Receipts[0].ID, nil, nil)
	svcErr, _ = AsError(err)
	assert.Equal(t, CodeTaskLocked, svcErr.Code)

	// The opposite direction can never complete once locked
	_, err = svc.MarkReimburseDone(ctx, task.ID, "")
	svcErr, _ = AsError(err)
	assert.Equal(t, CodeTaskLocked, svcErr.Code)
}

func TestMarkRefundDoneTwiceIsNoOp(t *testing.T) {
	svc, _, _ := newTaskService()
	ctx := context.Background()
	task := fundedTask(t, svc, 50000)

	_, err := svc.CreateReceipt(ctx, task.ID, receiptFor(42000))
	require.NoError(t, err)

	first, err := svc.MarkRefundDone(ctx, task.ID, "")
	require.NoError(t, err)

	second, err := svc.MarkRefundDone(ctx, task.ID, "")
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)

	refund := second.SettlementOf(models.SettlementTypeRefund)
	require.NotNil(t, refund)
	assert.Equal(t, int64(8000), refund.Amount)
}

func TestMarkRefundDoneWithoutDue(t *testing.T) {
	svc, _, _ := newTaskService()
	ctx := context.Background()
	task := fundedTask(t, svc, 30000)

	_, err := svc.CreateReceipt(ctx, task.ID, receiptFor(30000))
	require.NoError(t, err)

	_, err = svc.MarkRefundDone(ctx, task.ID, "")
	require.Error(t, err)
	svcErr, _ := AsError(err)
	assert.Equal(t, CodeSettlementNotRequired, svcErr.Code)
}

func TestCreateCashbackCreditsWallet(t *testing.T) {
	svc, repo, _ := newTaskService()
	ctx := context.Background()
	task := fundedTask(t, svc, 50000)

	task, err := svc.CreateReceipt(ctx, task.ID, receiptFor(42000))
	require.NoError(t, err)
	receiptID := task.Receipts[0].ID

	cashback, err := svc.CreateCashback(ctx, task.ID, receiptID, CashbackInput{
		Amount:    1500,
		Vendor:    "market",
		CreatedBy: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), cashback.Amount)
	assert.False(t, cashback.OccurredAt.IsZero())

	// The wallet credit landed in the same write as the cashback
	require.Len(t, repo.walletEntries, 1)
	entry := repo.walletEntries[0]
	assert.Equal(t, models.WalletEntryCredit, entry.Type)
	assert.Equal(t, models.WalletSourceCashback, entry.Source)
	assert.Equal(t, int64(1500), entry.Amount)
	require.NotNil(t, entry.TaskID)
	assert.Equal(t, task.ID, *entry.TaskID)
	assert.NotNil(t, entry.CashbackID)
	assert.Equal(t, "user-1", entry.CreatedBy)
}

func TestCreateCashbackOnForeignReceipt(t *testing.T) {
	svc, _, _ := newTaskService()
	ctx := context.Background()

	first := fundedTask(t, svc, 50000)
	first, err := svc.CreateReceipt(ctx, first.ID, receiptFor(42000))
	require.NoError(t, err)
	foreignReceiptID := first.Receipts[0].ID

	second, err := svc.CreateTask(ctx, CreateTaskInput{Title: "other", CreatedBy: "user-1"})
	require.NoError(t, err)

	_, err = svc.CreateCashback(ctx, second.ID, foreignReceiptID, CashbackInput{Amount: 100})
	require.Error(t, err)
	svcErr, _ := AsError(err)
	assert.Equal(t, CodeNotFound, svcErr.Code)
}

func TestListTasksRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTaskService()

	_, err := svc.ListTasks(context.Background(), "archived")
	require.Error(t, err)
	svcErr, _ := AsError(err)
	assert.Equal(t, CodeValidationFailed, svcErr.Code)
}

func TestFindTaskNotFound(t *testing.T) {
	svc, _, _ := newTaskService()

	_, err := svc.FindTask(context.Background(), 404)
	require.Error(t, err)
	svcErr, _ := AsError(err)
	assert.Equal(t, CodeNotFound, svcErr.Code)
}

func TestRepairStatusesFixesDriftedStatus(t *testing.T) {
	svc, repo, _ := newTaskService()
	ctx := context.Background()

	task := fundedTask(t, svc, 50000)

	// Simulate drift: the stored status no longer matches the records
	repo.tasks[task.ID].Status = models.TaskStatusDraft

	repaired, err := svc.RepairStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	assert.Equal(t, models.TaskStatusFunded, repo.tasks[task.ID].Status)

	// A second sweep finds nothing to fix
	repaired, err = svc.RepairStatuses(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}
