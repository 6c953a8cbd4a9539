package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/api/shared"
	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/platform/memstore"
	"github.com/natefry/muse-api/internal/provider"
	"github.com/natefry/muse-api/internal/quota"
	"github.com/natefry/muse-api/internal/task"
	"github.com/natefry/muse-api/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router *chi.Mux
	userID uuid.UUID
	tasks  *memstore.TaskStore
	ledger *quota.Ledger
}

// newAPIFixture wires the handlers over in-memory stores with the mock
// provider, inline execution, and a stub auth middleware injecting a
// fixed user id.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	taskStore := memstore.NewTaskStore()
	quotaStore := memstore.NewQuotaStore()
	ledger := quota.NewLedger(
		quotaStore,
		quota.NewTierEntitlements(memstore.NewSubscriptionStore(), 5),
		logger,
	)
	registry := tools.NewStaticRegistry()
	providers := provider.NewRegistry(provider.NewMockAdapter())
	worker := task.NewWorker(taskStore, registry, provider.NewRouter(providers), ledger, logger)
	dispatcher := task.NewDispatcher(taskStore, registry, ledger, task.NewInlineExecutor(worker), logger)

	f := &apiFixture{userID: uuid.New(), tasks: taskStore, ledger: ledger}

	taskHandler := NewTaskHandler(dispatcher)
	toolHandler := NewToolHandler(registry)
	quotaHandler := NewQuotaHandler(ledger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), shared.UserIDContextKey, f.userID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks", taskHandler.ListTasks)
		r.Get("/tasks/{taskId}", taskHandler.GetTask)
		r.Post("/tasks/{taskId}/cancel", taskHandler.CancelTask)
		r.Get("/tools", toolHandler.ListTools)
		r.Get("/quota", quotaHandler.GetQuota)
	})
	f.router = r
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) TaskResponse {
	t.Helper()
	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateTaskSucceeds(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{
		ToolID:  "text.write",
		Payload: map[string]interface{}{"prompt": "write a haiku"},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeTask(t, rec)
	assert.Equal(t, string(domain.TaskStatusSucceeded), resp.Status)
	assert.Equal(t, "text.write", resp.ToolID)
	assert.Equal(t, provider.MockID, resp.ProviderID)
	require.Len(t, resp.Artifacts, 1)
	assert.Equal(t, string(domain.ArtifactTypeText), resp.Artifacts[0].Type)
}

func TestCreateTaskUnknownTool(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{ToolID: "no.such.tool"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTaskMissingToolID(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{"payload": map[string]interface{}{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTaskQuotaExceeded(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 5; i++ {
		rec := f.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{ToolID: "text.write"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{ToolID: "text.write"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGetTaskRoundTrip(t *testing.T) {
	f := newAPIFixture(t)

	created := decodeTask(t, f.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{ToolID: "text.write"}))

	rec := f.do(t, http.MethodGet, "/api/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeTask(t, rec)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, string(domain.TaskStatusSucceeded), got.Status)
}

func TestGetTaskNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/tasks/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/tasks/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTaskOtherUsersTaskHidden(t *testing.T) {
	f := newAPIFixture(t)

	// A task owned by someone else is indistinguishable from a
	// missing one.
	other := domain.NewTask(uuid.New(), "text.write", domain.ModalityText, nil)
	require.NoError(t, f.tasks.CreateTask(context.Background(), other))

	rec := f.do(t, http.MethodGet, "/api/tasks/"+other.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/tasks/"+other.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTasks(t *testing.T) {
	f := newAPIFixture(t)

	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{ToolID: "text.write"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp TaskListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 3)
}

func TestListTasksInvalidCursor(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/tasks?cursor=garbage", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelTerminalTaskIdempotent(t *testing.T) {
	f := newAPIFixture(t)

	created := decodeTask(t, f.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{ToolID: "text.write"}))
	require.Equal(t, string(domain.TaskStatusSucceeded), created.Status)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/tasks/%s/cancel", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeTask(t, rec)
	assert.Equal(t, string(domain.TaskStatusSucceeded), got.Status)
}

func TestCancelQueuedTask(t *testing.T) {
	f := newAPIFixture(t)

	queued := domain.NewTask(f.userID, "text.write", domain.ModalityText, nil)
	require.NoError(t, f.tasks.CreateTask(context.Background(), queued))

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/tasks/%s/cancel", queued.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeTask(t, rec)
	assert.Equal(t, string(domain.TaskStatusCanceled), got.Status)
}

func TestListTools(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp []ToolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	ids := make([]string, 0, len(resp))
	for _, tool := range resp {
		ids = append(ids, tool.ID)
	}
	assert.Contains(t, ids, "text.write")
	assert.Contains(t, ids, "image.generate")
	assert.Contains(t, ids, "video.generate")
}

func TestGetQuota(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tasks", CreateTaskRequest{ToolID: "text.write"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/quota", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp EntitlementResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	daily, ok := resp.Quotas[quota.KeyDaily]
	require.True(t, ok)
	assert.Equal(t, 1, daily.Used)
	assert.Equal(t, 5, daily.Total)
	assert.Equal(t, 4, daily.Remaining)
	assert.False(t, resp.Features["priorityQueue"])
}
