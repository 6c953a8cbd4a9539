package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/domain"
)

// TaskUpdate carries the fields written alongside a status transition.
// Zero-valued fields are left untouched. Artifacts, when present, are
// persisted in the same atomic unit as the status change so a reader
// never observes a succeeded task without its outputs.
type TaskUpdate struct {
	ProviderID string
	ModelID    string
	Error      *domain.TaskError
	Artifacts  []domain.Artifact
}

// TaskFilter restricts and pages a task listing. Cursor is an opaque
// token produced by a previous listing call; Limit of zero means the
// store default.
type TaskFilter struct {
	UserID uuid.UUID
	Cursor string
	Limit  int
}

// TaskPage is one page of a task listing ordered by creation time
// descending. NextCursor is empty when no further page exists.
type TaskPage struct {
	Items      []*domain.Task
	NextCursor string
}

// TaskStore defines the interface for persisting tasks.
//
// UpdateTaskStatus is the serialization point for concurrent workers:
// it performs an atomic read-modify-write that rejects any transition
// the state machine does not permit with ErrInvalidTransition, so a
// duplicate delivery finding the task already running or terminal
// backs off instead of re-executing.
type TaskStore interface {
	// CreateTask persists a new task. Returns ErrDuplicateTask if a
	// task with the same id already exists.
	CreateTask(ctx context.Context, task *domain.Task) error

	// GetTask retrieves a task with its artifacts. Returns
	// ErrTaskNotFound if no task with the id exists.
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)

	// UpdateTaskStatus atomically transitions a task to the given
	// status and applies the update fields. Returns ErrTaskNotFound if
	// the task does not exist and ErrInvalidTransition if the state
	// machine forbids the move.
	UpdateTaskStatus(
		ctx context.Context,
		taskID uuid.UUID,
		status domain.TaskStatus,
		update TaskUpdate,
	) error

	// ListTasks returns one page of the caller's tasks ordered by
	// creation time descending.
	ListTasks(ctx context.Context, filter TaskFilter) (*TaskPage, error)
}

// QuotaStore persists per-(user, key, period) usage counters. Reserve
// must be a single atomic unit against the backing store: concurrent
// reservations for the same counter must never carry used past limit.
type QuotaStore interface {
	// ReserveQuota increments the counter by amount only if the result
	// stays within limit, creating the record lazily. Returns false
	// without mutation when the reservation would exceed the limit.
	ReserveQuota(
		ctx context.Context,
		userID uuid.UUID,
		quotaKey, period string,
		amount, limit int,
	) (bool, error)

	// ReleaseQuota decrements the counter by amount, clamping at zero.
	// Releasing more than was reserved is tolerated as a best-effort
	// correction.
	ReleaseQuota(
		ctx context.Context,
		userID uuid.UUID,
		quotaKey, period string,
		amount int,
	) error

	// GetQuotaUsed reports the counter's current value, zero when the
	// record does not exist yet.
	GetQuotaUsed(
		ctx context.Context,
		userID uuid.UUID,
		quotaKey, period string,
	) (int, error)
}

// SubscriptionStore exposes the read side of the billing system the
// quota ledger needs to compute limits.
type SubscriptionStore interface {
	// GetActiveSubscription returns the user's currently active
	// subscription, or ErrSubscriptionNotFound when the user has none.
	GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
}
