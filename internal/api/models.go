package api

import (
	"time"

	"github.com/natefry/muse-api/internal/domain"
	"github.com/natefry/muse-api/internal/quota"
	"github.com/natefry/muse-api/internal/tools"
)

// TaskErrorResponse carries the machine-readable failure recorded on a task.
type TaskErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ArtifactResponse represents one task output.
type ArtifactResponse struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	ObjectKey string                 `json:"object_key"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id"`
	ToolID     string                 `json:"tool_id"`
	Status     string                 `json:"status"`
	ProviderID string                 `json:"provider_id,omitempty"`
	ModelID    string                 `json:"model_id,omitempty"`
	Artifacts  []ArtifactResponse     `json:"artifacts,omitempty"`
	Error      *TaskErrorResponse     `json:"error,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// TaskListResponse is a cursor page of tasks.
type TaskListResponse struct {
	Items      []TaskResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ToolResponse represents a tool in the catalog listing.
type ToolResponse struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	ModalityIn  []string               `json:"modality_in,omitempty"`
	ModalityOut []string               `json:"modality_out,omitempty"`
	Schema      map[string]interface{} `json:"schema,omitempty"`
}

// QuotaWindowResponse is one quota key's usage window.
type QuotaWindowResponse struct {
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	Total     int       `json:"total"`
	ResetAt   time.Time `json:"reset_at"`
}

// EntitlementResponse is the caller's feature and quota snapshot.
type EntitlementResponse struct {
	Features map[string]bool                `json:"features"`
	Quotas   map[string]QuotaWindowResponse `json:"quotas"`
}

func taskToResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:        t.ID.String(),
		UserID:    t.UserID.String(),
		ToolID:    t.ToolID,
		Status:    string(t.Status),
		Payload:   t.Payload,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.Status == domain.TaskStatusSucceeded || t.Status == domain.TaskStatusFailed {
		resp.ProviderID = t.ProviderID
		resp.ModelID = t.ModelID
	}
	if t.Error != nil {
		resp.Error = &TaskErrorResponse{Code: t.Error.Code, Message: t.Error.Message}
	}
	for _, a := range t.Artifacts {
		resp.Artifacts = append(resp.Artifacts, ArtifactResponse{
			ID:        a.ID.String(),
			Type:      string(a.Type),
			ObjectKey: a.ObjectKey,
			Metadata:  a.Metadata,
			CreatedAt: a.CreatedAt,
		})
	}
	return resp
}

func toolToResponse(t *tools.Tool) ToolResponse {
	resp := ToolResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Schema:      t.Schema,
	}
	for _, m := range t.ModalityIn {
		resp.ModalityIn = append(resp.ModalityIn, string(m))
	}
	for _, m := range t.ModalityOut {
		resp.ModalityOut = append(resp.ModalityOut, string(m))
	}
	return resp
}

func entitlementToResponse(state *quota.EntitlementState) EntitlementResponse {
	resp := EntitlementResponse{
		Features: state.Features,
		Quotas:   make(map[string]QuotaWindowResponse, len(state.Quotas)),
	}
	for key, info := range state.Quotas {
		resp.Quotas[key] = QuotaWindowResponse{
			Used:      info.Used,
			Remaining: info.Remaining,
			Total:     info.Total,
			ResetAt:   info.ResetAt,
		}
	}
	return resp
}
