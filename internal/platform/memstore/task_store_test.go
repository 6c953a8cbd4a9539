package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask(userID uuid.UUID) *domain.Task {
	return domain.NewTask(userID, "text.write", domain.ModalityText, map[string]interface{}{"prompt": "hi"})
}

func TestCreateTask(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	task := newTestTask(uuid.New())

	require.NoError(t, s.CreateTask(ctx, task))

	// Duplicate id is rejected.
	err := s.CreateTask(ctx, task)
	assert.ErrorIs(t, err, store.ErrDuplicateTask)
	assert.True(t, store.IsDuplicateError(err))
}

func TestGetTask(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	task := newTestTask(uuid.New())
	require.NoError(t, s.CreateTask(ctx, task))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, domain.TaskStatusQueued, got.Status)

	_, err = s.GetTask(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestGetTaskReturnsCopy(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	task := newTestTask(uuid.New())
	require.NoError(t, s.CreateTask(ctx, task))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	got.Status = domain.TaskStatusFailed
	got.Payload["prompt"] = "mutated"

	again, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusQueued, again.Status)
	assert.Equal(t, "hi", again.Payload["prompt"])
}

func TestUpdateTaskStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []domain.TaskStatus
		wantErr error
	}{
		{
			name: "queued to running to succeeded",
			path: []domain.TaskStatus{domain.TaskStatusRunning, domain.TaskStatusSucceeded},
		},
		{
			name: "queued to running to failed",
			path: []domain.TaskStatus{domain.TaskStatusRunning, domain.TaskStatusFailed},
		},
		{
			name: "queued to canceled",
			path: []domain.TaskStatus{domain.TaskStatusCanceled},
		},
		{
			name: "running to canceled",
			path: []domain.TaskStatus{domain.TaskStatusRunning, domain.TaskStatusCanceled},
		},
		{
			name:    "queued to succeeded is rejected",
			path:    []domain.TaskStatus{domain.TaskStatusSucceeded},
			wantErr: store.ErrInvalidTransition,
		},
		{
			name:    "terminal is absorbing",
			path:    []domain.TaskStatus{domain.TaskStatusCanceled, domain.TaskStatusRunning},
			wantErr: store.ErrInvalidTransition,
		},
		{
			name:    "no re-entry into queued",
			path:    []domain.TaskStatus{domain.TaskStatusRunning, domain.TaskStatusQueued},
			wantErr: store.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewTaskStore()
			ctx := context.Background()
			task := newTestTask(uuid.New())
			require.NoError(t, s.CreateTask(ctx, task))

			var err error
			for _, status := range tt.path {
				err = s.UpdateTaskStatus(ctx, task.ID, status, store.TaskUpdate{})
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateTaskStatusFields(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	task := newTestTask(uuid.New())
	require.NoError(t, s.CreateTask(ctx, task))

	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, domain.TaskStatusRunning, store.TaskUpdate{}))

	artifact := domain.Artifact{
		ID:        uuid.New(),
		TaskID:    task.ID,
		Type:      domain.ArtifactTypeText,
		ObjectKey: "hello world",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, domain.TaskStatusSucceeded, store.TaskUpdate{
		ProviderID: "mock",
		ModelID:    "mock-v1",
		Artifacts:  []domain.Artifact{artifact},
	}))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusSucceeded, got.Status)
	assert.Equal(t, "mock", got.ProviderID)
	assert.Equal(t, "mock-v1", got.ModelID)
	require.Len(t, got.Artifacts, 1)
	assert.Equal(t, artifact.ID, got.Artifacts[0].ID)
	assert.Nil(t, got.Error)
}

func TestUpdateTaskStatusNotFound(t *testing.T) {
	s := NewTaskStore()
	err := s.UpdateTaskStatus(context.Background(), uuid.New(), domain.TaskStatusRunning, store.TaskUpdate{})
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestListTasks(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	userID := uuid.New()

	var created []*domain.Task
	for i := 0; i < 5; i++ {
		task := newTestTask(userID)
		// Distinct timestamps make the ordering assertions deterministic.
		task.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, s.CreateTask(ctx, task))
		created = append(created, task)
	}

	// Another user's task must not leak into the listing.
	other := newTestTask(uuid.New())
	require.NoError(t, s.CreateTask(ctx, other))

	page, err := s.ListTasks(ctx, store.TaskFilter{UserID: userID})
	require.NoError(t, err)
	require.Len(t, page.Items, 5)
	assert.Empty(t, page.NextCursor)

	// Newest first.
	for i := 0; i < len(page.Items)-1; i++ {
		assert.True(t, page.Items[i].CreatedAt.After(page.Items[i+1].CreatedAt))
	}
	assert.Equal(t, created[4].ID, page.Items[0].ID)
}

func TestListTasksPagination(t *testing.T) {
	s := NewTaskStore()
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		task := newTestTask(userID)
		task.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, s.CreateTask(ctx, task))
	}

	first, err := s.ListTasks(ctx, store.TaskFilter{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := s.ListTasks(ctx, store.TaskFilter{UserID: userID, Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)

	// Pages do not overlap.
	for _, a := range first.Items {
		for _, b := range second.Items {
			assert.NotEqual(t, a.ID, b.ID)
		}
	}

	third, err := s.ListTasks(ctx, store.TaskFilter{UserID: userID, Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	assert.Len(t, third.Items, 1)
	assert.Empty(t, third.NextCursor)
}

func TestListTasksInvalidCursor(t *testing.T) {
	s := NewTaskStore()
	_, err := s.ListTasks(context.Background(), store.TaskFilter{Cursor: "not-a-timestamp"})
	assert.ErrorIs(t, err, store.ErrInvalidCursor)
}
