package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/flipi-app/flipi/internal/model"
	"github.com/flipi-app/flipi/internal/store"
)

// CampaignsHandler handles campaign listing and admin management.
type CampaignsHandler struct {
	DB *sql.DB
}

type campaignRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

// List handles GET /api/campaigns. Inactive campaigns are included with ?all=1.
func (h *CampaignsHandler) List(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "1"

	campaigns, err := store.ListCampaigns(r.Context(), h.DB, !all)
	if err != nil {
		slog.Error("failed to list campaigns", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}
	jsonResponse(w, http.StatusOK, campaigns)
}

// Create handles POST /api/campaigns.
func (h *CampaignsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	c, err := store.CreateCampaign(r.Context(), h.DB, req.Name, strings.TrimSpace(req.Description))
	if err != nil {
		slog.Error("failed to create campaign", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}

	slog.Info("campaign created", "user", GetClaims(r.Context()).Username, "campaign_id", c.ID, "name", c.Name)
	jsonResponse(w, http.StatusCreated, c)
}

// Update handles PUT /api/campaigns/{id}.
func (h *CampaignsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	existing, err := store.GetCampaign(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get campaign", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get campaign")
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "campaign not found")
		return
	}

	var req campaignRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = existing.Name
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = existing.Description
	}
	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	if err := store.UpdateCampaign(r.Context(), h.DB, id, name, desc, active); err != nil {
		slog.Error("failed to update campaign", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update campaign")
		return
	}

	updated, _ := store.GetCampaign(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, updated)
}
