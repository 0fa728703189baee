package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/flipi-app/flipi/internal/store"
)

// ImagesHandler serves image blobs kept in the database when no object
// bucket is configured.
type ImagesHandler struct {
	DB *sql.DB
}

// Get handles GET /api/images/{key...}.
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		jsonError(w, http.StatusNotFound, "image not found")
		return
	}

	data, mime, err := store.GetImage(r.Context(), h.DB, key)
	if err != nil {
		slog.Error("failed to get image", "key", key, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "image not found")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	// Keys are content-unique, so the bytes behind a key never change.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
