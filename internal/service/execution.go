package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/execution"
	"github.com/Strob0t/Boardroom/internal/llmjson"
	"github.com/Strob0t/Boardroom/internal/port/completion"
	"github.com/Strob0t/Boardroom/internal/port/database"
	"github.com/Strob0t/Boardroom/internal/port/messagequeue"
)

// ErrTaskNotFound is returned for unknown execution task ids.
var ErrTaskNotFound = fmt.Errorf("execution task: %w", domain.ErrNotFound)

// dispatchPayload is the message sent to workers for a new task.
type dispatchPayload struct {
	TaskID        string `json:"task_id"`
	DecisionTitle string `json:"decision_title"`
	Action        string `json:"action"`
}

// resultPayload is the terminal result reported by a worker.
type resultPayload struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// logPayload is one streamed worker log line.
type logPayload struct {
	TaskID string `json:"task_id"`
	Line   string `json:"line"`
}

// ExecutionTracker owns the lifecycle of auto-executable follow-up tasks.
// Tasks live in memory with a best-effort Postgres mirror; dispatch to
// workers goes over the message queue when one is configured.
type ExecutionTracker struct {
	mu    sync.RWMutex
	tasks map[string]*execution.Task
	order []string

	store    database.Store
	queue    messagequeue.Queue
	provider completion.Provider
	cfg      config.Discussion
	now      func() time.Time
}

// NewExecutionTracker creates a tracker. queue and store may be nil; tasks
// then stay pending until driven through the API.
func NewExecutionTracker(store database.Store, queue messagequeue.Queue, provider completion.Provider, cfg config.Discussion) *ExecutionTracker {
	return &ExecutionTracker{
		tasks:    make(map[string]*execution.Task),
		store:    store,
		queue:    queue,
		provider: provider,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CreateTask registers a pending task for an auto-executable decision and
// dispatches it to workers if a queue is configured.
func (t *ExecutionTracker) CreateTask(ctx context.Context, sessionID, decisionTitle, action string) *execution.Task {
	task := &execution.Task{
		ID:            uuid.NewString(),
		DecisionTitle: decisionTitle,
		Action:        action,
		Status:        execution.StatusPending,
		CreatedAt:     t.now().UTC(),
	}

	t.mu.Lock()
	t.tasks[task.ID] = task
	t.order = append(t.order, task.ID)
	t.mu.Unlock()

	t.persist(ctx, sessionID, task)

	if t.queue != nil {
		data, err := json.Marshal(dispatchPayload{
			TaskID:        task.ID,
			DecisionTitle: decisionTitle,
			Action:        action,
		})
		if err == nil {
			err = t.queue.Publish(ctx, messagequeue.SubjectExecutionDispatch, data)
		}
		if err != nil {
			slog.Warn("task dispatch failed, task stays pending", "task_id", task.ID, "error", err)
		}
	}

	slog.Info("execution task created", "task_id", task.ID, "decision", decisionTitle)
	return task.Clone()
}

func (t *ExecutionTracker) persist(ctx context.Context, sessionID string, task *execution.Task) {
	if t.store == nil {
		return
	}
	if err := t.store.SaveExecutionTask(ctx, sessionID, task); err != nil {
		slog.Warn("task persist failed, continuing in memory", "task_id", task.ID, "error", err)
	}
}

func (t *ExecutionTracker) get(id string) (*execution.Task, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	task, ok := t.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	return task, nil
}

// StartTask transitions a pending task to running.
func (t *ExecutionTracker) StartTask(ctx context.Context, id string) error {
	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	err := task.Start(t.now().UTC())
	cp := task.Clone()
	t.mu.Unlock()
	if err != nil {
		return err
	}
	t.persist(ctx, "", cp)
	return nil
}

// AddLog appends a log line. Lines for unknown tasks are dropped silently;
// workers may keep streaming after a task record is gone.
func (t *ExecutionTracker) AddLog(ctx context.Context, id, line string) {
	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	task.AppendLog(line, t.now().UTC())
	cp := task.Clone()
	t.mu.Unlock()
	t.persist(ctx, "", cp)
}

// CompleteTask resolves a task with a terminal status.
func (t *ExecutionTracker) CompleteTask(ctx context.Context, id string, status execution.Status, errMsg string) error {
	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	err := task.Complete(status, errMsg, t.now().UTC())
	cp := task.Clone()
	t.mu.Unlock()
	if err != nil {
		return err
	}
	t.persist(ctx, "", cp)
	slog.Info("execution task resolved", "task_id", id, "status", status)
	return nil
}

// Get returns a copy of one task.
func (t *ExecutionTracker) Get(id string) (*execution.Task, error) {
	task, err := t.get(id)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return task.Clone(), nil
}

// All returns copies of every tracked task in creation order.
func (t *ExecutionTracker) All() []*execution.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*execution.Task, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.tasks[id].Clone())
	}
	return out
}

// RunningTasks returns copies of tasks currently running.
func (t *ExecutionTracker) RunningTasks() []*execution.Task {
	return t.filter(func(task *execution.Task) bool {
		return task.Status == execution.StatusRunning
	})
}

// FailedTasks returns copies of tasks that resolved as failure or partial.
func (t *ExecutionTracker) FailedTasks() []*execution.Task {
	return t.filter(func(task *execution.Task) bool {
		return task.Status == execution.StatusFailure || task.Status == execution.StatusPartial
	})
}

func (t *ExecutionTracker) filter(keep func(*execution.Task) bool) []*execution.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*execution.Task
	for _, id := range t.order {
		if keep(t.tasks[id]) {
			out = append(out, t.tasks[id].Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// AnalyzeExecution runs a post-mortem over a resolved task's logs.
func (t *ExecutionTracker) AnalyzeExecution(ctx context.Context, id string) (*execution.Analysis, error) {
	task, err := t.Get(id)
	if err != nil {
		return nil, err
	}

	system, user := buildAnalysisPrompt(task)
	result, err := t.provider.Complete(ctx, completion.Request{
		System:      system,
		User:        user,
		Model:       t.cfg.ClassifierModel,
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze task %s: %w", id, err)
	}

	analysis, err := llmjson.Decode[execution.Analysis](result.Content)
	if err != nil {
		return nil, fmt.Errorf("analyze task %s: parse: %w", id, err)
	}
	return &analysis, nil
}

// SubscribeResults wires the tracker to worker result and log subjects.
// The returned function cancels both subscriptions.
func (t *ExecutionTracker) SubscribeResults(ctx context.Context) (func(), error) {
	if t.queue == nil {
		return func() {}, nil
	}

	stopResults, err := t.queue.Subscribe(ctx, messagequeue.SubjectExecutionResult, func(ctx context.Context, _ string, data []byte) error {
		var p resultPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
		status := execution.Status(p.Status)
		if !status.IsTerminal() {
			return fmt.Errorf("result for %s carries non-terminal status %q", p.TaskID, p.Status)
		}
		if err := t.CompleteTask(ctx, p.TaskID, status, p.Error); err != nil {
			slog.Warn("worker result for unknown or resolved task", "task_id", p.TaskID, "error", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stopLogs, err := t.queue.Subscribe(ctx, messagequeue.SubjectExecutionLog, func(ctx context.Context, _ string, data []byte) error {
		var p logPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("unmarshal log: %w", err)
		}
		t.AddLog(ctx, p.TaskID, p.Line)
		return nil
	})
	if err != nil {
		stopResults()
		return nil, err
	}

	return func() {
		stopResults()
		stopLogs()
	}, nil
}
