package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/flipi-app/flipi/internal/imaging"
	"github.com/flipi-app/flipi/internal/market"
	"github.com/flipi-app/flipi/internal/model"
	"github.com/flipi-app/flipi/internal/objstore"
	"github.com/flipi-app/flipi/internal/store"
)

// ItemsHandler handles item listings and the request and give transitions.
type ItemsHandler struct {
	DB      *sql.DB
	Market  *market.Service
	Objects objstore.Store
}

type itemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Region      string `json:"region"`
	Town        string `json:"town"`
	CampaignID  *int64 `json:"campaign_id"`
}

type itemDetail struct {
	*model.Item
	// MyConversation is the caller's own request, if any.
	MyConversation *market.ConversationView `json:"my_conversation,omitempty"`
	// Requests is filled for the owner only.
	Requests []market.ConversationView `json:"requests,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type requestItemRequest struct {
	Note string `json:"note"`
}

type giveRequest struct {
	RequesterID int64 `json:"requester_id"`
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type handoverSummary struct {
	Item     *model.Item    `json:"item"`
	Receiver *model.Profile `json:"receiver"`
	Review   *model.Review  `json:"review,omitempty"`
	Donation struct {
		AmountCents int    `json:"amount_cents"`
		Currency    string `json:"currency"`
	} `json:"donation"`
}

// fields validates an item body and returns the store fields.
func (h *ItemsHandler) fields(r *http.Request, req itemRequest) (store.ItemFields, string) {
	f := store.ItemFields{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Condition:   req.Condition,
		Region:      strings.TrimSpace(req.Region),
		Town:        strings.TrimSpace(req.Town),
		CampaignID:  req.CampaignID,
	}

	switch {
	case f.Title == "" || utf8.RuneCountInString(f.Title) > 120:
		return f, "title required (max 120 characters)"
	case utf8.RuneCountInString(f.Description) > 2000:
		return f, "description too long (max 2000 characters)"
	case !model.ValidCategory(f.Category):
		return f, "invalid category"
	case !model.ValidCondition(f.Condition):
		return f, "invalid condition"
	case f.Region == "" || f.Town == "":
		return f, "region and town required"
	}

	if f.CampaignID != nil {
		c, err := store.GetCampaign(r.Context(), h.DB, *f.CampaignID)
		if err != nil || c == nil || !c.Active {
			return f, "campaign not found or inactive"
		}
	}
	return f, ""
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ItemFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Region:   q.Get("region"),
		Town:     q.Get("town"),
	}
	for name, dst := range map[string]*int64{"owner_id": &f.OwnerID, "campaign_id": &f.CampaignID} {
		if s := q.Get(name); s != "" {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil || id <= 0 {
				jsonError(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			*dst = id
		}
	}
	if f.Status != "" && f.Status != model.ItemStatusAvailable &&
		f.Status != model.ItemStatusReserved && f.Status != model.ItemStatusGiven {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, msg := h.fields(r, req)
	if msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, claims.UserID, f)
	if err != nil {
		slog.Error("failed to create item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	slog.Info("item listed", "user", claims.Username, "item_id", item.ID, "title", item.Title)
	jsonResponse(w, http.StatusCreated, item)
}

// loadItem returns a live item or writes 404.
func (h *ItemsHandler) loadItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil, false
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return nil, false
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

// loadOwnItem is loadItem restricted to the caller's own items.
func (h *ItemsHandler) loadOwnItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return nil, false
	}
	if item.OwnerID != GetClaims(r.Context()).UserID {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	userID := GetClaims(r.Context()).UserID
	detail := itemDetail{Item: item}

	if item.OwnerID == userID {
		convs, err := store.ListItemConversations(r.Context(), h.DB, item.ID)
		if err != nil {
			slog.Error("failed to list item conversations", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to get item")
			return
		}
		detail.Requests = []market.ConversationView{}
		for i := range convs {
			detail.Requests = append(detail.Requests, market.View(&convs[i], item, userID))
		}
	} else {
		conv, err := store.GetConversationForRequester(r.Context(), h.DB, item.ID, userID)
		if err != nil {
			slog.Error("failed to get conversation", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to get item")
			return
		}
		if conv != nil {
			v := market.View(conv, item, userID)
			detail.MyConversation = &v
		}
	}

	jsonResponse(w, http.StatusOK, detail)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwnItem(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, msg := h.fields(r, req)
	if msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := store.UpdateItem(r.Context(), h.DB, item.ID, item.OwnerID, f)
	if err != nil {
		slog.Error("failed to update item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if !updated {
		jsonError(w, http.StatusConflict, "item already given")
		return
	}

	item, _ = store.GetItem(r.Context(), h.DB, item.ID)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}. Owners delete their own items;
// admins may remove any listing.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if item.OwnerID != claims.UserID && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	deleted, err := store.DeleteItem(r.Context(), h.DB, item.ID)
	if err != nil {
		slog.Error("failed to delete item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	if !deleted {
		jsonError(w, http.StatusConflict, "item already given")
		return
	}

	slog.Info("item deleted", "user", claims.Username, "item_id", item.ID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// SetStatus handles PUT /api/items/{id}/status.
func (h *ItemsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwnItem(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != model.ItemStatusAvailable && req.Status != model.ItemStatusReserved {
		jsonError(w, http.StatusBadRequest, "status must be available or reserved")
		return
	}

	changed, err := store.SetItemReserved(r.Context(), h.DB, item.ID, item.OwnerID,
		req.Status == model.ItemStatusReserved)
	if err != nil {
		slog.Error("failed to set item status", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to set item status")
		return
	}
	if !changed {
		jsonError(w, http.StatusConflict, "item already given")
		return
	}

	item, _ = store.GetItem(r.Context(), h.DB, item.ID)
	jsonResponse(w, http.StatusOK, item)
}

// UploadImage handles POST /api/items/{id}/images.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwnItem(w, r)
	if !ok {
		return
	}
	if item.Status == model.ItemStatusGiven {
		jsonError(w, http.StatusConflict, "item already given")
		return
	}
	if len(item.Images) >= model.MaxItemImages {
		storeError(w, store.ErrTooManyImages, "add image")
		return
	}

	img, ok := readUpload(w, r, imaging.ItemPhoto)
	if !ok {
		return
	}

	key := objstore.NewKey(fmt.Sprintf("items/%d", item.ID))
	url, err := h.Objects.Put(r.Context(), key, img.Data, img.MIME)
	if err != nil {
		slog.Error("failed to store image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	position, err := store.AddItemImage(r.Context(), h.DB, item.ID, url)
	if err != nil {
		storeError(w, err, "add image")
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]any{"position": position, "url": url})
}

// DeleteImage handles DELETE /api/items/{id}/images/{position}.
func (h *ItemsHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwnItem(w, r)
	if !ok {
		return
	}
	if item.Status == model.ItemStatusGiven {
		jsonError(w, http.StatusConflict, "item already given")
		return
	}
	position, err := strconv.Atoi(r.PathValue("position"))
	if err != nil || position < 0 {
		jsonError(w, http.StatusBadRequest, "invalid image position")
		return
	}

	removed, err := store.RemoveItemImage(r.Context(), h.DB, item.ID, position)
	if err != nil {
		storeError(w, err, "remove image")
		return
	}
	if !removed {
		jsonError(w, http.StatusNotFound, "image not found")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image removed"})
}

// Request handles POST /api/items/{id}/request.
func (h *ItemsHandler) Request(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req requestItemRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	res, err := h.Market.RequestItem(r.Context(), id, claims.UserID, req.Note)
	if err != nil {
		storeError(w, err, "request item")
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
		slog.Info("item requested", "user", claims.Username, "item_id", id, "conversation_id", res.Conversation.ID)
	}
	jsonResponse(w, status, market.ViewFromList(res.Conversation, claims.UserID))
}

// Give handles POST /api/items/{id}/give.
func (h *ItemsHandler) Give(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req giveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RequesterID <= 0 {
		jsonError(w, http.StatusBadRequest, "requester_id required")
		return
	}

	claims := GetClaims(r.Context())
	handover, err := h.Market.GiveItem(r.Context(), id, claims.UserID, req.RequesterID)
	if err != nil {
		storeError(w, err, "give item")
		return
	}

	jsonResponse(w, http.StatusOK, handover)
}

// Handover handles GET /api/items/{id}/handover, the summary shown to the
// owner after a give together with the review and donation prompts.
func (h *ItemsHandler) Handover(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadOwnItem(w, r)
	if !ok {
		return
	}
	if item.Status != model.ItemStatusGiven || item.SelectedRequesterID == nil {
		storeError(w, store.ErrNotGiven, "get handover")
		return
	}

	receiver, err := store.GetUser(r.Context(), h.DB, *item.SelectedRequesterID)
	if err != nil || receiver == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get handover")
		return
	}
	review, err := store.GetReviewForItem(r.Context(), h.DB, item.ID)
	if err != nil {
		storeError(w, err, "get handover")
		return
	}

	p := receiver.Profile()
	summary := handoverSummary{Item: item, Receiver: &p, Review: review}
	summary.Donation.AmountCents = model.DonationAmountCents
	summary.Donation.Currency = model.DonationCurrency
	jsonResponse(w, http.StatusOK, summary)
}

// Review handles POST /api/items/{id}/review.
func (h *ItemsHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if req.Rating < 1 || req.Rating > 5 {
		jsonError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	if utf8.RuneCountInString(req.Comment) > 1000 {
		jsonError(w, http.StatusBadRequest, "comment too long (max 1000 characters)")
		return
	}

	claims := GetClaims(r.Context())
	review, err := store.CreateReview(r.Context(), h.DB, id, claims.UserID, req.Rating, req.Comment)
	if err != nil {
		storeError(w, err, "save review")
		return
	}

	jsonResponse(w, http.StatusCreated, review)
}
