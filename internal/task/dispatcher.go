package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/quota"
	"github.com/natefry/muse-api/internal/redact"
	"github.com/natefry/muse-api/internal/store"
	"github.com/natefry/muse-api/internal/tools"
)

// Dispatcher is the single entry point for tool invocations. It
// validates the tool, reserves quota, creates the task record and
// hands it to the configured executor.
type Dispatcher struct {
	tasks  store.TaskStore
	tools  tools.Registry
	ledger *quota.Ledger
	exec   Executor
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher using the given executor strategy.
func NewDispatcher(
	taskStore store.TaskStore,
	registry tools.Registry,
	ledger *quota.Ledger,
	exec Executor,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		tasks:  taskStore,
		tools:  registry,
		ledger: ledger,
		exec:   exec,
		logger: logger.With(slog.String("component", "dispatcher")),
	}
}

// Submit accepts one tool invocation. Pre-task failures (unknown tool,
// exhausted quota) are returned as errors with no task created. Once a
// task record exists, failures are recorded on the task instead of
// being thrown: the caller always gets either an immediate rejection
// or a task handle it can poll to a terminal state.
func (d *Dispatcher) Submit(
	ctx context.Context,
	userID uuid.UUID,
	toolID string,
	payload map[string]interface{},
) (*domain.Task, error) {
	log := d.logger.With(
		slog.String("user_id", userID.String()),
		slog.String("tool_id", toolID),
	)

	tool, err := d.tools.GetTool(ctx, toolID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, toolID)
		}
		return nil, fmt.Errorf("failed to resolve tool: %w", err)
	}

	quotaKeys := quota.KeysFor(tool.OutputModality())
	ok, err := d.ledger.ReserveAll(ctx, userID, quotaKeys, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve quota: %w", err)
	}
	if !ok {
		log.Info("submission rejected, quota exhausted")
		return nil, ErrQuotaExceeded
	}

	t := domain.NewTask(userID, toolID, tool.OutputModality(), payload)
	if err := d.tasks.CreateTask(ctx, t); err != nil {
		d.ledger.ReleaseAll(ctx, userID, quotaKeys, 1)
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	log = log.With(slog.String("task_id", t.ID.String()))
	log.Info("task created")

	if d.exec.Async() {
		if err := d.exec.Execute(ctx, t.ID); err != nil {
			// The task record exists; never leave it silently orphaned.
			log.Error("failed to enqueue task", slog.String("error", err.Error()))
			d.markEnqueueFailed(ctx, t, err)
			d.ledger.ReleaseAll(ctx, userID, quotaKeys, 1)
			return d.reload(ctx, t)
		}
		return t, nil
	}

	// Synchronous fallback: block until the worker reaches a terminal
	// state, then hand back the final task.
	if err := d.exec.Execute(ctx, t.ID); err != nil {
		log.Error("inline execution error", slog.String("error", err.Error()))
	}
	return d.reload(ctx, t)
}

// Cancel marks a task canceled. It is idempotent: canceling a task
// that already reached a terminal state succeeds without mutation.
func (d *Dispatcher) Cancel(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	t, err := d.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.Status.IsTerminal() {
		return t, nil
	}

	err = d.tasks.UpdateTaskStatus(ctx, taskID, domain.TaskStatusCanceled, store.TaskUpdate{})
	if err != nil && !errors.Is(err, store.ErrInvalidTransition) {
		// An invalid transition here means the task raced into a
		// terminal state; that still counts as done.
		return nil, err
	}

	d.logger.Info("task canceled", slog.String("task_id", taskID.String()))
	return d.reload(ctx, t)
}

// Get returns one task.
func (d *Dispatcher) Get(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	return d.tasks.GetTask(ctx, taskID)
}

// List returns one page of the user's tasks, newest first.
func (d *Dispatcher) List(ctx context.Context, userID uuid.UUID, cursor string) (*store.TaskPage, error) {
	return d.tasks.ListTasks(ctx, store.TaskFilter{UserID: userID, Cursor: cursor})
}

// markEnqueueFailed walks the task to failed through the running state
// so the recorded transitions stay within the lifecycle machine.
func (d *Dispatcher) markEnqueueFailed(ctx context.Context, t *domain.Task, cause error) {
	if err := d.tasks.UpdateTaskStatus(ctx, t.ID, domain.TaskStatusRunning, store.TaskUpdate{}); err != nil {
		d.logger.Error("failed to mark task for enqueue failure",
			slog.String("task_id", t.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	update := store.TaskUpdate{
		Error: &domain.TaskError{
			Code:    domain.ErrorCodeEnqueueFailed,
			Message: redact.Error(cause),
		},
	}
	if err := d.tasks.UpdateTaskStatus(ctx, t.ID, domain.TaskStatusFailed, update); err != nil {
		d.logger.Error("failed to record enqueue failure",
			slog.String("task_id", t.ID.String()),
			slog.String("error", err.Error()))
	}
}

// reload fetches the task's current state, falling back to the stale
// copy when the read fails.
func (d *Dispatcher) reload(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	fresh, err := d.tasks.GetTask(ctx, t.ID)
	if err != nil {
		d.logger.Error("failed to reload task",
			slog.String("task_id", t.ID.String()),
			slog.String("error", err.Error()))
		return t, nil
	}
	return fresh, nil
}
