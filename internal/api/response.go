package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/flipi-app/flipi/internal/market"
	"github.com/flipi-app/flipi/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(r *http.Request, target any) error {
	if err := decodeJSON(r, target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// storeError maps lifecycle errors to responses. Anything unexpected is
// logged and reported as "failed to <action>".
func storeError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrConversationNotFound):
		jsonError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, store.ErrItemAlreadyGiven):
		jsonError(w, http.StatusConflict, "item already given")
	case errors.Is(err, store.ErrItemNotAvailable):
		jsonError(w, http.StatusConflict, "item is no longer available")
	case errors.Is(err, store.ErrOwnItem):
		jsonError(w, http.StatusBadRequest, "cannot request your own item")
	case errors.Is(err, store.ErrConversationLocked):
		jsonError(w, http.StatusForbidden, "conversation is locked")
	case errors.Is(err, store.ErrTooManyImages):
		jsonError(w, http.StatusConflict, "an item can have at most 8 images")
	case errors.Is(err, store.ErrAlreadyReviewed):
		jsonError(w, http.StatusConflict, "item already reviewed")
	case errors.Is(err, store.ErrNotGiven):
		jsonError(w, http.StatusConflict, "item has not been given yet")
	case errors.Is(err, market.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("failed to "+action, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to "+action)
	}
}
