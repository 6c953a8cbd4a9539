// Package memstore provides in-memory implementations of the store
// interfaces, selected by configuration when no database URL is set.
// It keeps the server deployable without standing infrastructure; data
// does not survive a restart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/store"
)

// defaultPageSize bounds task listing pages.
const defaultPageSize = 50

// TaskStore is a mutex-guarded in-memory task store.
type TaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[uuid.UUID]*domain.Task),
	}
}

// CreateTask implements store.TaskStore.
func (s *TaskStore) CreateTask(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return store.ErrDuplicateTask
	}

	s.tasks[task.ID] = cloneTask(task)
	return nil
}

// GetTask implements store.TaskStore.
func (s *TaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return nil, store.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// UpdateTaskStatus implements store.TaskStore. The single mutex makes
// the read-check-write sequence atomic, which is what turns the
// queued-to-running edge into the workers' serialization point.
func (s *TaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status domain.TaskStatus,
	update store.TaskUpdate,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return store.ErrTaskNotFound
	}

	if !domain.CanTransition(task.Status, status) {
		return store.ErrInvalidTransition
	}

	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	if update.ProviderID != "" {
		task.ProviderID = update.ProviderID
	}
	if update.ModelID != "" {
		task.ModelID = update.ModelID
	}
	if update.Error != nil {
		task.Error = update.Error
	}
	if len(update.Artifacts) > 0 {
		task.Artifacts = append(task.Artifacts, update.Artifacts...)
	}

	return nil
}

// ListTasks implements store.TaskStore. Results are ordered by creation
// time descending; the cursor is the RFC 3339 creation timestamp of
// the last item on the previous page.
func (s *TaskStore) ListTasks(ctx context.Context, filter store.TaskFilter) (*store.TaskPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cursorTime time.Time
	if filter.Cursor != "" {
		parsed, err := time.Parse(time.RFC3339Nano, filter.Cursor)
		if err != nil {
			return nil, store.ErrInvalidCursor
		}
		cursorTime = parsed
	}

	var matched []*domain.Task
	for _, task := range s.tasks {
		if filter.UserID != uuid.Nil && task.UserID != filter.UserID {
			continue
		}
		if !cursorTime.IsZero() && !task.CreatedAt.Before(cursorTime) {
			continue
		}
		matched = append(matched, task)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	page := &store.TaskPage{}
	for i, task := range matched {
		if i >= limit {
			page.NextCursor = page.Items[len(page.Items)-1].CreatedAt.Format(time.RFC3339Nano)
			break
		}
		page.Items = append(page.Items, cloneTask(task))
	}

	return page, nil
}

// cloneTask copies a task so callers cannot mutate stored state.
func cloneTask(t *domain.Task) *domain.Task {
	clone := *t
	if t.Payload != nil {
		clone.Payload = make(map[string]interface{}, len(t.Payload))
		for k, v := range t.Payload {
			clone.Payload[k] = v
		}
	}
	if t.Artifacts != nil {
		clone.Artifacts = append([]domain.Artifact(nil), t.Artifacts...)
	}
	if t.Error != nil {
		errCopy := *t.Error
		clone.Error = &errCopy
	}
	return &clone
}
