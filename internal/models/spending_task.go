package models

import (
	"time"
)

// SpendingTask is a budget envelope for a discretionary purchase. Its status
// is a cache of a pure function over funding, receipts and settlements; the
// stored value is advisory and is recomputed after every mutation.
type SpendingTask struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Status      string    `gorm:"default:draft;not null;index" json:"status"`
	CreatedBy   string    `gorm:"not null;index" json:"created_by"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations
	Funding     *TaskFunding     `gorm:"foreignKey:TaskID" json:"funding,omitempty"`
	Receipts    []TaskReceipt    `gorm:"foreignKey:TaskID" json:"receipts,omitempty"`
	Settlements []TaskSettlement `gorm:"foreignKey:TaskID" json:"settlements,omitempty"`
}

// TableName specifies the table name for SpendingTask
func (SpendingTask) TableName() string {
	return "spending_tasks"
}

// Task status constants
const (
	TaskStatusDraft          = "draft"
	TaskStatusFunded         = "funded"
	TaskStatusSpending       = "spending"
	TaskStatusNeedsRefund    = "needs_refund"
	TaskStatusNeedsReimburse = "needs_reimburse"
	TaskStatusSettled        = "settled"
)

// ValidTaskStatus reports whether status is one of the known task statuses
func ValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusDraft, TaskStatusFunded, TaskStatusSpending,
		TaskStatusNeedsRefund, TaskStatusNeedsReimburse, TaskStatusSettled:
		return true
	}
	return false
}

// TaskFunding is the single funding record of a task. Created once, then
// updated in place until the task is locked.
type TaskFunding struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TaskID     uint      `gorm:"uniqueIndex;not null" json:"task_id"`
	Amount     int64     `gorm:"not null" json:"amount"`
	ReceivedAt time.Time `gorm:"type:date;not null;index" json:"received_at"`
	Source     string    `json:"source"`
	Notes      string    `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for TaskFunding
func (TaskFunding) TableName() string {
	return "task_fundings"
}

// TaskReceipt records one purchase against a task budget
type TaskReceipt struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TaskID        uint      `gorm:"not null;index" json:"task_id"`
	Vendor        string    `json:"vendor"`
	TotalAmount   int64     `gorm:"not null" json:"total_amount"`
	PurchasedAt   time.Time `gorm:"type:date;not null" json:"purchased_at"`
	AttachmentURL string    `json:"attachment_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Associations
	Items     []ReceiptItem `gorm:"foreignKey:ReceiptID" json:"items,omitempty"`
	Cashbacks []Cashback    `gorm:"foreignKey:ReceiptID" json:"cashbacks,omitempty"`
}

// TableName specifies the table name for TaskReceipt
func (TaskReceipt) TableName() string {
	return "task_receipts"
}

// ItemsTotal sums quantity × unit price over the receipt line items
func (r *TaskReceipt) ItemsTotal() int64 {
	var total int64
	for _, it := range r.Items {
		total += it.Quantity * it.UnitPrice
	}
	return total
}

// ReceiptItem is one line of a receipt
type ReceiptItem struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ReceiptID   uint   `gorm:"not null;index" json:"receipt_id"`
	Description string `gorm:"not null" json:"description"`
	Quantity    int64  `gorm:"not null" json:"quantity"`
	UnitPrice   int64  `gorm:"not null" json:"unit_price"`
}

// TableName specifies the table name for ReceiptItem
func (ReceiptItem) TableName() string {
	return "receipt_items"
}

// Cashback is money returned by a vendor against a receipt. Recording one
// always credits the wallet sub-ledger in the same transaction.
type Cashback struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReceiptID  uint      `gorm:"not null;index" json:"receipt_id"`
	Amount     int64     `gorm:"not null" json:"amount"`
	Vendor     string    `json:"vendor"`
	OccurredAt time.Time `gorm:"type:date;not null" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for Cashback
func (Cashback) TableName() string {
	return "cashbacks"
}

// TaskSettlement resolves the funding/receipt difference of a task.
// At most one row exists per (task, type); a done settlement locks the task.
type TaskSettlement struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	TaskID    uint       `gorm:"not null;index:idx_settlement_task_type,unique,priority:1" json:"task_id"`
	Type      string     `gorm:"not null;index:idx_settlement_task_type,unique,priority:2" json:"type"`
	Amount    int64      `gorm:"not null" json:"amount"`
	Status    string     `gorm:"default:pending;not null" json:"status"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
	Notes     string     `gorm:"type:text" json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for TaskSettlement
func (TaskSettlement) TableName() string {
	return "task_settlements"
}

// Settlement type constants
const (
	SettlementTypeRefund    = "refund"
	SettlementTypeReimburse = "reimburse"
)

// Settlement status constants
const (
	SettlementStatusPending = "pending"
	SettlementStatusDone    = "done"
)

// IsDone returns true once the settlement has been marked done
func (s *TaskSettlement) IsDone() bool {
	return s.Status == SettlementStatusDone
}

// TaskSummary is the derived financial view of a task. It is never stored;
// every read recomputes it from the authoritative records.
type TaskSummary struct {
	Budget        int64 `json:"budget"`
	TotalReceipts int64 `json:"total_receipts"`
	Diff          int64 `json:"diff"`
	RefundDue     int64 `json:"refund_due"`
	ReimburseDue  int64 `json:"reimburse_due"`
	IsLocked      bool  `json:"is_locked"`
}

// Summary derives the financial summary from the loaded associations
func (t *SpendingTask) Summary() TaskSummary {
	var s TaskSummary
	if t.Funding != nil {
		s.Budget = t.Funding.Amount
	}
	for i := range t.Receipts {
		s.TotalReceipts += t.Receipts[i].TotalAmount
	}
	s.Diff = s.Budget - s.TotalReceipts
	if s.Diff > 0 {
		s.RefundDue = s.Diff
	}
	if s.Diff < 0 {
		s.ReimburseDue = -s.Diff
	}
	for i := range t.Settlements {
		if t.Settlements[i].IsDone() {
			s.IsLocked = true
			break
		}
	}
	return s
}

// DeriveStatus evaluates the status rules top to bottom, first match wins.
// The lock override comes last and beats everything above it.
func DeriveStatus(hasFunding bool, hasReceipts bool, s TaskSummary) string {
	if s.IsLocked {
		return TaskStatusSettled
	}
	if !hasFunding {
		return TaskStatusDraft
	}
	if !hasReceipts {
		return TaskStatusFunded
	}
	if s.RefundDue > 0 {
		return TaskStatusNeedsRefund
	}
	if s.ReimburseDue > 0 {
		return TaskStatusNeedsReimburse
	}
	return TaskStatusSettled
}

// IsLocked re-scans the settlement rows; the lock is never cached on the task
func (t *SpendingTask) IsLocked() bool {
	for i := range t.Settlements {
		if t.Settlements[i].IsDone() {
			return true
		}
	}
	return false
}

// SettlementOf returns the settlement row of the given type, if any
func (t *SpendingTask) SettlementOf(settlementType string) *TaskSettlement {
	for i := range t.Settlements {
		if t.Settlements[i].Type == settlementType {
			return &t.Settlements[i]
		}
	}
	return nil
}

// MayMutate returns true while the task accepts funding/receipt/settlement writes
func (t *SpendingTask) MayMutate() bool {
	return !t.IsLocked()
}

// SpendingTaskResponse is the JSON response format for tasks
type SpendingTaskResponse struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	CreatedBy   string           `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	Summary     TaskSummary      `json:"summary"`
	Funding     *TaskFunding     `json:"funding,omitempty"`
	Receipts    []TaskReceipt    `json:"receipts,omitempty"`
	Settlements []TaskSettlement `json:"settlements,omitempty"`
}

// ToResponse converts SpendingTask to SpendingTaskResponse with a fresh summary
func (t *SpendingTask) ToResponse() SpendingTaskResponse {
	return SpendingTaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		Summary:     t.Summary(),
		Funding:     t.Funding,
		Receipts:    t.Receipts,
		Settlements: t.Settlements,
	}
}
