package api

import (
	"database/sql"
	"net/http"

	"github.com/flipi-app/flipi/internal/market"
	"github.com/flipi-app/flipi/internal/metrics"
	"github.com/flipi-app/flipi/internal/model"
	"github.com/flipi-app/flipi/internal/objstore"
	"github.com/flipi-app/flipi/internal/realtime"
)

// Config holds the dependencies shared by the API handlers.
type Config struct {
	DB        *sql.DB
	JWTSecret string
	Market    *market.Service
	Hub       *realtime.Hub
	Objects   objstore.Store
	Metrics   *metrics.Metrics
	// AuthLimiter throttles login and registration. Nil disables it.
	AuthLimiter *RateLimiter
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: cfg.DB, JWTSecret: cfg.JWTSecret}
	usersHandler := &UsersHandler{DB: cfg.DB}
	profilesHandler := &ProfilesHandler{DB: cfg.DB, Objects: cfg.Objects}
	itemsHandler := &ItemsHandler{DB: cfg.DB, Market: cfg.Market, Objects: cfg.Objects}
	convsHandler := &ConversationsHandler{DB: cfg.DB, Market: cfg.Market}
	campaignsHandler := &CampaignsHandler{DB: cfg.DB}
	donationsHandler := &DonationsHandler{DB: cfg.DB}
	imagesHandler := &ImagesHandler{DB: cfg.DB}

	authMW := AuthMiddleware(cfg.JWTSecret, cfg.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	limit := func(h http.Handler) http.Handler { return h }
	if cfg.AuthLimiter != nil {
		limit = cfg.AuthLimiter.Handler
	}
	user := func(fn http.HandlerFunc) http.Handler { return authMW(fn) }
	admin := func(fn http.HandlerFunc) http.Handler { return authMW(requireAdmin(fn)) }

	// Public.
	mux.Handle("POST /api/auth/register", limit(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", limit(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("GET /api/images/{key...}", imagesHandler.Get)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}

	// Account.
	mux.Handle("PUT /api/auth/password", user(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", user(authHandler.Logout))

	// Profiles.
	mux.Handle("GET /api/profile", user(profilesHandler.Me))
	mux.Handle("PUT /api/profile", user(profilesHandler.Update))
	mux.Handle("PUT /api/profile/avatar", user(profilesHandler.UploadAvatar))
	mux.Handle("GET /api/profiles/{id}", user(profilesHandler.Get))
	mux.Handle("GET /api/leaderboard", user(profilesHandler.Leaderboard))
	mux.Handle("GET /api/ranks", user(profilesHandler.Ranks))

	// Items. Ownership is checked by the handlers.
	mux.Handle("GET /api/items", user(itemsHandler.List))
	mux.Handle("POST /api/items", user(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", user(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", user(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", user(itemsHandler.Delete))
	mux.Handle("PUT /api/items/{id}/status", user(itemsHandler.SetStatus))
	mux.Handle("POST /api/items/{id}/images", user(itemsHandler.UploadImage))
	mux.Handle("DELETE /api/items/{id}/images/{position}", user(itemsHandler.DeleteImage))
	mux.Handle("POST /api/items/{id}/request", user(itemsHandler.Request))
	mux.Handle("POST /api/items/{id}/give", user(itemsHandler.Give))
	mux.Handle("GET /api/items/{id}/handover", user(itemsHandler.Handover))
	mux.Handle("POST /api/items/{id}/review", user(itemsHandler.Review))

	// Conversations.
	mux.Handle("GET /api/conversations", user(convsHandler.List))
	mux.Handle("GET /api/conversations/unread", user(convsHandler.Unread))
	mux.Handle("GET /api/conversations/{id}", user(convsHandler.Get))
	mux.Handle("POST /api/conversations/{id}/messages", user(convsHandler.Send))
	mux.Handle("POST /api/conversations/{id}/read", user(convsHandler.Read))

	// Donations and campaigns.
	mux.Handle("POST /api/donations", user(donationsHandler.Create))
	mux.Handle("GET /api/campaigns", user(campaignsHandler.List))
	mux.Handle("POST /api/campaigns", admin(campaignsHandler.Create))
	mux.Handle("PUT /api/campaigns/{id}", admin(campaignsHandler.Update))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Realtime.
	if cfg.Hub != nil {
		rt := &RealtimeHandler{Hub: cfg.Hub}
		mux.Handle("GET /api/realtime", user(rt.Serve))
	}

	return mux
}
