package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/nazhim/markaz-api/internal/models"
)

// TaskFSM wraps a spending task with its status state machine. Status is
// derived from funding/receipts/settlements; the FSM guards that each
// recompute only applies transitions the lifecycle allows. The "spending"
// state never results from derivation but historical rows may carry it, so
// it stays a valid source state.
type TaskFSM struct {
	task *models.SpendingTask
	fsm  *fsm.FSM
}

// NewTaskFSM creates a new task state machine seeded with the stored status
func NewTaskFSM(task *models.SpendingTask) *TaskFSM {
	tfsm := &TaskFSM{
		task: task,
	}

	tfsm.fsm = fsm.NewFSM(
		task.Status,
		fsm.Events{
			// draft → funded (funding created)
			{Name: "fund", Src: []string{models.TaskStatusDraft}, Dst: models.TaskStatusFunded},

			// receipts removed, back to funded
			{Name: "clear_receipts", Src: []string{models.TaskStatusSpending, models.TaskStatusNeedsRefund, models.TaskStatusNeedsReimburse, models.TaskStatusSettled}, Dst: models.TaskStatusFunded},

			// spent less than the budget
			{Name: "require_refund", Src: []string{models.TaskStatusFunded, models.TaskStatusSpending, models.TaskStatusNeedsReimburse, models.TaskStatusSettled}, Dst: models.TaskStatusNeedsRefund},

			// spent more than the budget
			{Name: "require_reimburse", Src: []string{models.TaskStatusFunded, models.TaskStatusSpending, models.TaskStatusNeedsRefund, models.TaskStatusSettled}, Dst: models.TaskStatusNeedsReimburse},

			// budget fully consumed, or a settlement was completed
			{Name: "settle", Src: []string{models.TaskStatusDraft, models.TaskStatusFunded, models.TaskStatusSpending, models.TaskStatusNeedsRefund, models.TaskStatusNeedsReimburse}, Dst: models.TaskStatusSettled},
		},
		fsm.Callbacks{},
	)

	return tfsm
}

// ApplyDerived transitions the task to the freshly derived status.
// Staying in the current status is a no-op, not an error.
func (t *TaskFSM) ApplyDerived(ctx context.Context, target string) error {
	if t.task.Status == target {
		return nil
	}

	event, ok := t.eventFor(target)
	if !ok {
		return fmt.Errorf("no transition event for status: %s", target)
	}

	if err := t.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("cannot move task from %s to %s: %w", t.task.Status, target, err)
	}

	t.task.Status = t.fsm.Current()
	return nil
}

func (t *TaskFSM) eventFor(target string) (string, bool) {
	switch target {
	case models.TaskStatusFunded:
		if t.task.Status == models.TaskStatusDraft {
			return "fund", true
		}
		return "clear_receipts", true
	case models.TaskStatusNeedsRefund:
		return "require_refund", true
	case models.TaskStatusNeedsReimburse:
		return "require_reimburse", true
	case models.TaskStatusSettled:
		return "settle", true
	}
	return "", false
}

// Current returns the current state
func (t *TaskFSM) Current() string {
	return t.fsm.Current()
}

// Can checks if a transition is possible
func (t *TaskFSM) Can(event string) bool {
	return t.fsm.Can(event)
}
