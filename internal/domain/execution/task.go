// Package execution defines the ExecutionTask entity: a tracked unit of
// follow-up work spawned for an auto-executable decision.
package execution

import (
	"fmt"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain"
)

// Status represents the current state of an execution task.
// Transitions: pending → running → {success, failure, partial}.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusPartial Status = "partial"
)

// IsTerminal reports whether the task has resolved.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure || s == StatusPartial
}

// Task tracks the lifecycle of one autonomous follow-up action.
// Logs accumulate monotonically; tasks are never deleted, only archived.
type Task struct {
	ID            string     `json:"id"`
	DecisionTitle string     `json:"decision_title"`
	Action        string     `json:"action"`
	Status        Status     `json:"status"`
	Logs          []string   `json:"logs"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Start transitions the task to running and stamps StartedAt.
func (t *Task) Start(now time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("task %s is %s, expected pending: %w", t.ID, t.Status, domain.ErrTerminal)
	}
	t.Status = StatusRunning
	t.StartedAt = &now
	t.AppendLog("task started", now)
	return nil
}

// Complete transitions the task to a terminal status.
func (t *Task) Complete(status Status, errMsg string, now time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}
	if t.Status.IsTerminal() {
		return fmt.Errorf("task %s already resolved as %s: %w", t.ID, t.Status, domain.ErrTerminal)
	}
	t.Status = status
	t.Error = errMsg
	t.CompletedAt = &now
	t.AppendLog(fmt.Sprintf("task completed: %s", status), now)
	return nil
}

// AppendLog adds a timestamped line. Lines arriving after the task has
// resolved are accepted but flagged.
func (t *Task) AppendLog(text string, now time.Time) {
	line := fmt.Sprintf("[%s] %s", now.UTC().Format(time.RFC3339), text)
	if t.Status.IsTerminal() {
		line += " (after completion)"
	}
	t.Logs = append(t.Logs, line)
}

// Analysis is the structured result of a post-mortem over a task's logs.
type Analysis struct {
	Success                bool     `json:"success"`
	Summary                string   `json:"summary"`
	Issues                 []string `json:"issues,omitempty"`
	NextSteps              []string `json:"next_steps,omitempty"`
	NeedsRollback          bool     `json:"needs_rollback"`
	RollbackReason         string   `json:"rollback_reason,omitempty"`
	UserNotificationNeeded bool     `json:"user_notification_needed"`
	NotificationContent    string   `json:"notification_content,omitempty"`
}

// Clone returns a copy safe for concurrent readers.
func (t *Task) Clone() *Task {
	cp := *t
	cp.Logs = append([]string(nil), t.Logs...)
	if t.StartedAt != nil {
		ts := *t.StartedAt
		cp.StartedAt = &ts
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		cp.CompletedAt = &ts
	}
	return &cp
}
