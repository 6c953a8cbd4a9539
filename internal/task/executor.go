package task

import (
	"context"

	"github.com/google/uuid"
)

// Executor is the dispatch strategy chosen once at startup: hand the
// task id to a durable queue, or run it inline in the calling request.
// Injecting the strategy keeps the dispatcher free of per-call mode
// branching.
type Executor interface {
	// Execute hands off or runs the task. In queue mode it returns as
	// soon as the id is enqueued; in inline mode it returns only when
	// the task has reached a terminal state.
	Execute(ctx context.Context, taskID uuid.UUID) error

	// Async reports whether Execute returns before the task completes.
	Async() bool
}

// InlineExecutor runs tasks synchronously in the calling goroutine.
// This is the fallback mode for deployments without a queue; the
// caller is blocked for the full provider latency.
type InlineExecutor struct {
	worker *Worker
}

// NewInlineExecutor creates the synchronous executor.
func NewInlineExecutor(worker *Worker) *InlineExecutor {
	return &InlineExecutor{worker: worker}
}

// Execute implements Executor.
func (e *InlineExecutor) Execute(ctx context.Context, taskID uuid.UUID) error {
	return e.worker.Run(ctx, taskID)
}

// Async implements Executor.
func (e *InlineExecutor) Async() bool { return false }

// Enqueuer is the write side of the durable queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskID uuid.UUID) error
}

// QueueExecutor hands task ids to a durable queue and returns
// immediately.
type QueueExecutor struct {
	queue Enqueuer
}

// NewQueueExecutor creates the asynchronous executor.
func NewQueueExecutor(queue Enqueuer) *QueueExecutor {
	return &QueueExecutor{queue: queue}
}

// Execute implements Executor.
func (e *QueueExecutor) Execute(ctx context.Context, taskID uuid.UUID) error {
	return e.queue.Enqueue(ctx, taskID)
}

// Async implements Executor.
func (e *QueueExecutor) Async() bool { return true }
