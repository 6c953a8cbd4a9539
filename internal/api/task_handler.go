package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/api/shared"
	"github.com/natefry/muse-api/internal/store"
	"github.com/natefry/muse-api/internal/task"
)

// CreateTaskRequest is the request body for submitting a tool invocation.
type CreateTaskRequest struct {
	ToolID  string                 `json:"tool_id" validate:"required,min=1"`
	Payload map[string]interface{} `json:"payload"`
}

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	dispatcher *task.Dispatcher
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(dispatcher *task.Dispatcher) *TaskHandler {
	return &TaskHandler{dispatcher: dispatcher}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	t, err := h.dispatcher.Submit(r.Context(), userID, req.ToolID, req.Payload)
	if err != nil {
		switch {
		case errors.Is(err, task.ErrUnknownTool):
			shared.RespondWithError(w, r, http.StatusNotFound, "Unknown tool")
		case errors.Is(err, task.ErrQuotaExceeded):
			shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests, "Quota exceeded", err)
		default:
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to create task", err)
		}
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(t))
}

// GetTask handles GET /api/tasks/{taskId}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "taskId"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	t, err := h.dispatcher.Get(r.Context(), taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to get task", err)
		return
	}

	// Tasks are private to their owner; report foreign ids as absent.
	if t.UserID != userID {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(t))
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	page, err := h.dispatcher.List(r.Context(), userID, cursor)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCursor) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid cursor")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to list tasks", err)
		return
	}

	resp := TaskListResponse{
		Items:      make([]TaskResponse, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, item := range page.Items {
		resp.Items = append(resp.Items, taskToResponse(item))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// CancelTask handles POST /api/tasks/{taskId}/cancel.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "taskId"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	// Ownership check before mutating anything.
	existing, err := h.dispatcher.Get(r.Context(), taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to cancel task", err)
		return
	}
	if existing.UserID != userID {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	t, err := h.dispatcher.Cancel(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to cancel task", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(t))
}
