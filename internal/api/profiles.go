package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/flipi-app/flipi/internal/imaging"
	"github.com/flipi-app/flipi/internal/model"
	"github.com/flipi-app/flipi/internal/objstore"
	"github.com/flipi-app/flipi/internal/store"
)

// ProfilesHandler serves public profiles, the caller's own profile and the
// leaderboard.
type ProfilesHandler struct {
	DB      *sql.DB
	Objects objstore.Store
}

type profileResponse struct {
	model.Profile
	Reviews []model.Review `json:"reviews"`
}

type meResponse struct {
	model.Profile
	Role           string `json:"role"`
	Unread         int    `json:"unread"`
	Donations      int    `json:"donations"`
	DonatedCents   int    `json:"donated_cents"`
	NextRankPoints *int   `json:"next_rank_points,omitempty"`
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Region   string `json:"region"`
	Town     string `json:"town"`
}

// Get handles GET /api/profiles/{id}.
func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get profile", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "profile not found")
		return
	}

	reviews, err := store.ListReviewsFor(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to list reviews", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}

	jsonResponse(w, http.StatusOK, profileResponse{Profile: user.Profile(), Reviews: reviews})
}

// Me handles GET /api/profile.
func (h *ProfilesHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	ctx := r.Context()

	user, err := store.GetUser(ctx, h.DB, claims.UserID)
	if err != nil || user == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}

	unread, err := store.UnreadTotal(ctx, h.DB, user.ID)
	if err != nil {
		slog.Error("failed to count unread", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}

	count, cents, err := store.DonationTotal(ctx, h.DB, user.ID)
	if err != nil {
		slog.Error("failed to sum donations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}

	resp := meResponse{
		Profile:      user.Profile(),
		Role:         user.Role,
		Unread:       unread,
		Donations:    count,
		DonatedCents: cents,
	}
	for _, tier := range model.RankTiers {
		if tier.MinPoints > user.Points {
			next := tier.MinPoints
			resp.NextRankPoints = &next
			break
		}
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Update handles PUT /api/profile.
func (h *ProfilesHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" || len(req.FullName) > 120 {
		jsonError(w, http.StatusBadRequest, "full name required (max 120 characters)")
		return
	}

	if err := store.UpdateProfile(r.Context(), h.DB, claims.UserID, req.FullName,
		strings.TrimSpace(req.Region), strings.TrimSpace(req.Town)); err != nil {
		slog.Error("failed to update profile", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	user, _ := store.GetUser(r.Context(), h.DB, claims.UserID)
	if user == nil {
		jsonError(w, http.StatusNotFound, "profile not found")
		return
	}
	jsonResponse(w, http.StatusOK, user.Profile())
}

// UploadAvatar handles PUT /api/profile/avatar.
func (h *ProfilesHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	img, ok := readUpload(w, r, imaging.Avatar)
	if !ok {
		return
	}

	key := objstore.NewKey(fmt.Sprintf("avatars/%d", claims.UserID))
	url, err := h.Objects.Put(r.Context(), key, img.Data, img.MIME)
	if err != nil {
		slog.Error("failed to store avatar", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save avatar")
		return
	}

	if err := store.SetAvatar(r.Context(), h.DB, claims.UserID, url); err != nil {
		slog.Error("failed to set avatar", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save avatar")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"avatar_url": url})
}

// Leaderboard handles GET /api/leaderboard.
func (h *ProfilesHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			jsonError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	profiles, err := store.ListTopProfiles(r.Context(), h.DB, limit)
	if err != nil {
		slog.Error("failed to list leaderboard", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list leaderboard")
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	jsonResponse(w, http.StatusOK, profiles)
}

// Ranks handles GET /api/ranks.
func (h *ProfilesHandler) Ranks(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{
		"tiers":                model.RankTiers,
		"points_regular_item":  model.PointsRegularItem,
		"points_campaign_item": model.PointsCampaignItem,
	})
}

// readUpload reads the "image" multipart field and processes it with p.
// On failure it writes the response and returns false.
func readUpload(w http.ResponseWriter, r *http.Request, p imaging.Preset) (*imaging.Result, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return nil, false
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return nil, false
	}
	defer file.Close()

	img, err := imaging.Process(file, p)
	switch {
	case errors.Is(err, imaging.ErrUnsupportedFormat), errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusBadRequest, err.Error())
		return nil, false
	case err != nil:
		jsonError(w, http.StatusBadRequest, "could not read image")
		return nil, false
	}
	return img, true
}
