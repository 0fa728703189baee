package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/flipi-app/flipi/internal/store"
)

// DonationsHandler records micro-donations confirmed by the payment widget.
type DonationsHandler struct {
	DB *sql.DB
}

type donationRequest struct {
	ProviderRef string `json:"provider_ref"`
	ItemID      *int64 `json:"item_id"`
}

// Create handles POST /api/donations. Replaying a provider reference returns
// the original record.
func (h *DonationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ProviderRef = strings.TrimSpace(req.ProviderRef)
	if req.ProviderRef == "" {
		jsonError(w, http.StatusBadRequest, "provider_ref required")
		return
	}

	claims := GetClaims(r.Context())
	d, err := store.RecordDonation(r.Context(), h.DB, claims.UserID, req.ItemID, req.ProviderRef)
	if err != nil {
		slog.Error("failed to record donation", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to record donation")
		return
	}

	slog.Info("donation recorded", "user", claims.Username, "provider_ref", d.ProviderRef)
	jsonResponse(w, http.StatusCreated, d)
}
