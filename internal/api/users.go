package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/flipi-app/flipi/internal/auth"
	"github.com/flipi-app/flipi/internal/model"
	"github.com/flipi-app/flipi/internal/store"
)

// UsersHandler handles member moderation (admin only).
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Region   string `json:"region"`
	Town     string `json:"town"`
}

type updateUserRequest struct {
	Role string `json:"role"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// adminUser is a member as seen by moderators.
type adminUser struct {
	*model.User
	Rank         model.Rank     `json:"rank"`
	Donations    int            `json:"donations"`
	DonatedCents int            `json:"donated_cents"`
	Reviews      []model.Review `json:"reviews"`
}

func validRole(role string) bool {
	return role == model.RoleAdmin || role == model.RoleUser
}

// List handles GET /api/users. ?q= matches username or full name.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	out := []model.User{}
	for _, u := range users {
		if q == "" || strings.Contains(strings.ToLower(u.Username), q) ||
			strings.Contains(strings.ToLower(u.FullName), q) {
			out = append(out, u)
		}
	}
	jsonResponse(w, http.StatusOK, out)
}

// Create handles POST /api/users. Admins can provision members directly,
// including other admins.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	switch {
	case req.Username == "" || req.Password == "":
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	case !validRole(req.Role):
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if req.FullName == "" {
		req.FullName = req.Username
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.RegisterUser(r.Context(), h.DB, req.Username, hash, req.FullName,
		strings.TrimSpace(req.Region), strings.TrimSpace(req.Town))
	if err != nil {
		jsonError(w, http.StatusConflict, "username already exists")
		return
	}
	if req.Role != model.RoleUser {
		if err := store.UpdateUser(r.Context(), h.DB, user.ID, req.Role); err != nil {
			slog.Error("failed to set role", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to create user")
			return
		}
		user.Role = req.Role
	}

	slog.Info("user created", "user", GetClaims(r.Context()).Username, "new_user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	out := adminUser{User: user, Rank: model.RankFor(user.Points)}
	if out.Donations, out.DonatedCents, err = store.DonationTotal(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to sum donations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if out.Reviews, err = store.ListReviewsFor(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to list reviews", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if out.Reviews == nil {
		out.Reviews = []model.Review{}
	}

	jsonResponse(w, http.StatusOK, out)
}

// Update handles PUT /api/users/{id}. Admins cannot demote themselves.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "invalid role")
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID == id && req.Role != model.RoleAdmin {
		jsonError(w, http.StatusBadRequest, "cannot demote yourself")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := store.UpdateUser(r.Context(), h.DB, id, req.Role); err != nil {
		slog.Error("failed to update user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	user.Role = req.Role

	slog.Info("user role updated", "user", claims.Username, "target_user", user.Username, "new_role", req.Role)
	jsonResponse(w, http.StatusOK, user)
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || target == nil || target.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, id, hash); err != nil {
		slog.Error("failed to reset password", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	slog.Info("user password reset", "user", GetClaims(r.Context()).Username, "target_user", target.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/users/{id}. The member's open listings are
// withdrawn with the account; given items stay for the receivers' history.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || target == nil || target.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		slog.Error("failed to delete user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	withdrawn, err := store.DeleteItemsByOwner(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to withdraw listings", "user_id", id, "error", err)
	}

	slog.Info("user deleted", "user", claims.Username, "deleted_user", target.Username, "withdrawn_items", withdrawn)
	jsonResponse(w, http.StatusOK, map[string]any{"message": "user deleted", "withdrawn_items": withdrawn})
}
