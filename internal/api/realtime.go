package api

import (
	"net/http"

	"github.com/flipi-app/flipi/internal/realtime"
)

// RealtimeHandler upgrades authenticated clients to the realtime channel.
type RealtimeHandler struct {
	Hub *realtime.Hub
}

// Serve handles GET /api/realtime.
func (h *RealtimeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.Hub.ServeWS(w, r, GetClaims(r.Context()).UserID)
}
