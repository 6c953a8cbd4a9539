package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/provider"
	"github.com/natefry/muse-api/internal/quota"
	"github.com/natefry/muse-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingEnqueuer always rejects, simulating a queue outage.
type failingEnqueuer struct{}

func (failingEnqueuer) Enqueue(ctx context.Context, taskID uuid.UUID) error {
	return errors.New("queue unavailable")
}

// recordingEnqueuer accepts everything and remembers the ids.
type recordingEnqueuer struct {
	ids []uuid.UUID
}

func (r *recordingEnqueuer) Enqueue(ctx context.Context, taskID uuid.UUID) error {
	r.ids = append(r.ids, taskID)
	return nil
}

func newInlineDispatcher(f *workerFixture) *Dispatcher {
	return NewDispatcher(
		f.tasks,
		f.worker.tools,
		f.ledger,
		NewInlineExecutor(f.worker),
		setupTestLogger(),
	)
}

func TestDispatcherSubmitInlineSuccess(t *testing.T) {
	adapter := &fakeAdapter{id: "alpha", available: true}
	f := newWorkerFixture(t, newFakeRegistry(textTool(nil)), adapter)
	d := newInlineDispatcher(f)

	got, err := d.Submit(context.Background(), f.userID, "text.write", map[string]interface{}{"prompt": "hi"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusSucceeded, got.Status)
	assert.Equal(t, "alpha", got.ProviderID)
	require.Len(t, got.Artifacts, 1)
	assert.Equal(t, domain.ArtifactTypeText, got.Artifacts[0].Type)

	// Quota stays committed on success.
	state, err := f.ledger.State(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Quotas[quota.KeyDaily].Used)
	assert.Equal(t, 1, state.Quotas[quota.KeyMonthly].Used)
}

func TestDispatcherSubmitUnknownTool(t *testing.T) {
	f := newWorkerFixture(t, newFakeRegistry(), &fakeAdapter{id: "alpha", available: true})
	d := newInlineDispatcher(f)

	_, err := d.Submit(context.Background(), f.userID, "nope.tool", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)

	// Rejection precedes any reservation.
	state, stateErr := f.ledger.State(context.Background(), f.userID)
	require.NoError(t, stateErr)
	assert.Equal(t, 0, state.Quotas[quota.KeyDaily].Used)
}

func TestDispatcherSubmitQuotaExceeded(t *testing.T) {
	adapter := &fakeAdapter{id: "alpha", available: true}
	f := newWorkerFixture(t, newFakeRegistry(textTool(nil)), adapter)
	d := newInlineDispatcher(f)

	// Free tier daily limit is 5 in the fixture.
	for i := 0; i < 5; i++ {
		_, err := d.Submit(context.Background(), f.userID, "text.write", nil)
		require.NoError(t, err)
	}

	_, err := d.Submit(context.Background(), f.userID, "text.write", nil)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	// The same sentinel matches at the ledger layer.
	assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Equal(t, 5, adapter.callCount())
}

func TestDispatcherSubmitInlineFailureReturnsTask(t *testing.T) {
	adapter := &fakeAdapter{
		id:        "alpha",
		available: true,
		generate: func(ctx context.Context, req provider.GenerateRequest) (*provider.Result, error) {
			return nil, errors.New("backend exploded")
		},
	}
	f := newWorkerFixture(t, newFakeRegistry(textTool(nil)), adapter)
	d := newInlineDispatcher(f)

	// An execution failure is not a submission failure: the caller
	// gets the terminal task, with the error recorded on it.
	got, err := d.Submit(context.Background(), f.userID, "text.write", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, domain.ErrorCodeTaskFailed, got.Error.Code)

	// The worker released the reservation.
	state, err := f.ledger.State(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Quotas[quota.KeyDaily].Used)
}

func TestDispatcherSubmitQueueMode(t *testing.T) {
	f := newWorkerFixture(t, newFakeRegistry(textTool(nil)), &fakeAdapter{id: "alpha", available: true})
	enq := &recordingEnqueuer{}
	d := NewDispatcher(f.tasks, f.worker.tools, f.ledger, NewQueueExecutor(enq), setupTestLogger())

	got, err := d.Submit(context.Background(), f.userID, "text.write", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusQueued, got.Status)
	require.Len(t, enq.ids, 1)
	assert.Equal(t, got.ID, enq.ids[0])
}

func TestDispatcherSubmitEnqueueFailure(t *testing.T) {
	f := newWorkerFixture(t, newFakeRegistry(textTool(nil)), &fakeAdapter{id: "alpha", available: true})
	d := NewDispatcher(f.tasks, f.worker.tools, f.ledger, NewQueueExecutor(failingEnqueuer{}), setupTestLogger())

	got, err := d.Submit(context.Background(), f.userID, "text.write", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, domain.ErrorCodeEnqueueFailed, got.Error.Code)

	// The reservation was released; the slot is usable again.
	state, err := f.ledger.State(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Quotas[quota.KeyDaily].Used)
}

func TestDispatcherCancelQueuedTask(t *testing.T) {
	f := newWorkerFixture(t, newFakeRegistry(textTool(nil)), &fakeAdapter{id: "alpha", available: true})
	enq := &recordingEnqueuer{}
	d := NewDispatcher(f.tasks, f.worker.tools, f.ledger, NewQueueExecutor(enq), setupTestLogger())

	created, err := d.Submit(context.Background(), f.userID, "text.write", nil)
	require.NoError(t, err)

	canceled, err := d.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCanceled, canceled.Status)

	// The worker later drains the stale queue entry and must skip it.
	require.NoError(t, f.worker.Run(context.Background(), created.ID))
	got, err := d.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCanceled, got.Status)
}

func TestDispatcherCancelTerminalTaskIdempotent(t *testing.T) {
	adapter := &fakeAdapter{id: "alpha", available: true}
	f := newWorkerFixture(t, newFakeRegistry(textTool(nil)), adapter)
	d := newInlineDispatcher(f)

	created, err := d.Submit(context.Background(), f.userID, "text.write", nil)
	require.NoError(t, err)
	require.Equal(t, domain.TaskStatusSucceeded, created.Status)

	got, err := d.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusSucceeded, got.Status)
	assert.Len(t, got.Artifacts, 1)
}

func TestDispatcherCancelMissingTask(t *testing.T) {
	f := newWorkerFixture(t, newFakeRegistry(textTool(nil)), &fakeAdapter{id: "alpha", available: true})
	d := newInlineDispatcher(f)

	_, err := d.Cancel(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDispatcherList(t *testing.T) {
	adapter := &fakeAdapter{id: "alpha", available: true}
	f := newWorkerFixture(t, newFakeRegistry(textTool(nil)), adapter)
	d := newInlineDispatcher(f)

	for i := 0; i < 3; i++ {
		_, err := d.Submit(context.Background(), f.userID, "text.write", nil)
		require.NoError(t, err)
	}
	// Another user's tasks must not leak into the listing.
	other := uuid.New()
	_, err := d.Submit(context.Background(), other, "text.write", nil)
	require.NoError(t, err)

	page, err := d.List(context.Background(), f.userID, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	for _, item := range page.Items {
		assert.Equal(t, f.userID, item.UserID)
	}
}
