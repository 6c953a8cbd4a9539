package api

import (
	"net/http"

	"github.com/natefry/muse-api/internal/api/shared"
	"github.com/natefry/muse-api/internal/tools"
)

// ToolHandler serves the tool catalog.
type ToolHandler struct {
	registry tools.Registry
}

// NewToolHandler creates a ToolHandler.
func NewToolHandler(registry tools.Registry) *ToolHandler {
	return &ToolHandler{registry: registry}
}

// ListTools handles GET /api/tools.
func (h *ToolHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.registry.ListTools(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to list tools", err)
		return
	}

	resp := make([]ToolResponse, 0, len(enabled))
	for _, t := range enabled {
		resp = append(resp, toolToResponse(t))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
