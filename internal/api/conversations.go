package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/flipi-app/flipi/internal/market"
	"github.com/flipi-app/flipi/internal/model"
	"github.com/flipi-app/flipi/internal/store"
)

// ConversationsHandler serves the caller's conversations and messages.
type ConversationsHandler struct {
	DB     *sql.DB
	Market *market.Service
}

type sendRequest struct {
	Content string `json:"content"`
}

type conversationDetail struct {
	market.ConversationView
	Item     *model.Item     `json:"item"`
	Messages []model.Message `json:"messages"`
}

// List handles GET /api/conversations.
func (h *ConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := GetClaims(r.Context()).UserID

	convs, err := store.ListConversationsForUser(r.Context(), h.DB, userID)
	if err != nil {
		slog.Error("failed to list conversations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	views := make([]market.ConversationView, 0, len(convs))
	for i := range convs {
		views = append(views, market.ViewFromList(&convs[i], userID))
	}
	jsonResponse(w, http.StatusOK, views)
}

// Unread handles GET /api/conversations/unread.
func (h *ConversationsHandler) Unread(w http.ResponseWriter, r *http.Request) {
	total, err := store.UnreadTotal(r.Context(), h.DB, GetClaims(r.Context()).UserID)
	if err != nil {
		slog.Error("failed to count unread", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to count unread")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"unread": total})
}

// Get handles GET /api/conversations/{id}. Non-participants get 404.
func (h *ConversationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	userID := GetClaims(r.Context()).UserID

	conv, err := store.GetConversation(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get conversation")
		return
	}
	if conv == nil || conv.SideOf(userID) == "" {
		storeError(w, store.ErrConversationNotFound, "get conversation")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, conv.ItemID)
	if err != nil || item == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}
	msgs, err := store.ListMessages(r.Context(), h.DB, conv.ID)
	if err != nil {
		storeError(w, err, "get conversation")
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	jsonResponse(w, http.StatusOK, conversationDetail{
		ConversationView: market.View(conv, item, userID),
		Item:             item,
		Messages:         msgs,
	})
}

// Send handles POST /api/conversations/{id}/messages.
func (h *ConversationsHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req sendRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.Market.SendMessage(r.Context(), id, GetClaims(r.Context()).UserID, req.Content)
	if err != nil {
		storeError(w, err, "send message")
		return
	}
	jsonResponse(w, http.StatusCreated, msg)
}

// Read handles POST /api/conversations/{id}/read.
func (h *ConversationsHandler) Read(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	userID := GetClaims(r.Context()).UserID
	conv, err := h.Market.MarkRead(r.Context(), id, userID)
	if err != nil {
		storeError(w, err, "mark conversation read")
		return
	}
	jsonResponse(w, http.StatusOK, market.ViewFromList(conv, userID))
}
