package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/natefry/muse-api/internal/api/shared"
	"github.com/natefry/muse-api/internal/quota"
)

// QuotaHandler serves the caller's entitlement snapshot.
type QuotaHandler struct {
	ledger *quota.Ledger
}

// NewQuotaHandler creates a QuotaHandler.
func NewQuotaHandler(ledger *quota.Ledger) *QuotaHandler {
	return &QuotaHandler{ledger: ledger}
}

// GetQuota handles GET /api/quota.
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	state, err := h.ledger.State(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to get quota", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, entitlementToResponse(state))
}
