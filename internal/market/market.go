// Package market runs the item lifecycle transitions and their side
// effects: point accrual, metrics and realtime change events.
package market

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/flipi-app/flipi/internal/metrics"
	"github.com/flipi-app/flipi/internal/model"
	"github.com/flipi-app/flipi/internal/realtime"
	"github.com/flipi-app/flipi/internal/store"
)

// ErrInvalidInput is returned for rejected message content.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotAuthorized is returned when a realtime subscription is refused.
var ErrNotAuthorized = errors.New("not authorized")

// Publisher receives row change events.
type Publisher interface {
	Publish(ev realtime.Event)
}

// Service wires the store to its collaborators.
type Service struct {
	db      *sql.DB
	events  Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Service. A nil logger falls back to slog.Default.
func New(db *sql.DB, events Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, events: events, metrics: m, logger: logger}
}

// RequestItem opens (or returns the existing) conversation between the
// requester and the item owner.
func (s *Service) RequestItem(ctx context.Context, itemID, requesterID int64, note string) (*store.RequestResult, error) {
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > model.MaxMessageLength {
		return nil, fmt.Errorf("%w: note longer than %d characters", ErrInvalidInput, model.MaxMessageLength)
	}

	res, err := store.RequestItem(ctx, s.db, itemID, requesterID, note)
	if err != nil {
		s.metrics.Transition("request", outcome(err))
		return nil, err
	}

	if !res.Created {
		s.metrics.Transition("request", "existing")
		return res, nil
	}
	s.metrics.Transition("request", "ok")

	s.publishConversation(realtime.Insert, res.Conversation)
	for i := range res.Messages {
		s.publishMessage(&res.Messages[i])
	}
	return res, nil
}

// Handover is the outcome of a successful give.
type Handover struct {
	Item     *model.Item          `json:"item"`
	Accepted *model.Conversation  `json:"conversation"`
	Rejected []model.Conversation `json:"rejected"`
	// Giver is nil when the point award failed.
	Giver         *model.Profile `json:"giver,omitempty"`
	PointsAwarded int            `json:"points_awarded"`
}

// GiveItem hands the item to requesterID and credits the owner. The handover
// itself is atomic. The point award runs afterwards and never fails the give:
// errors are logged and counted.
func (s *Service) GiveItem(ctx context.Context, itemID, ownerID, requesterID int64) (*Handover, error) {
	res, err := store.GiveItem(ctx, s.db, itemID, ownerID, requesterID)
	if err != nil {
		s.metrics.Transition("give", outcome(err))
		return nil, err
	}
	s.metrics.Transition("give", "ok")

	h := &Handover{Item: res.Item, Accepted: res.Accepted, Rejected: res.Rejected}

	campaign := res.Item.IsCampaignItem()
	profile, err := store.AwardPoints(ctx, s.db, ownerID, campaign)
	if err != nil {
		s.metrics.AccrualFailed()
		s.logger.Error("awarding points", "user_id", ownerID, "item_id", itemID, "campaign", campaign, "error", err)
	} else {
		h.Giver = profile
		h.PointsAwarded = model.PointsFor(campaign)
		s.metrics.PointsAwarded(h.PointsAwarded)
	}

	s.publishConversation(realtime.Update, res.Accepted)
	for i := range res.Rejected {
		s.publishConversation(realtime.Update, &res.Rejected[i])
	}
	for i := range res.Messages {
		s.publishMessage(&res.Messages[i])
	}

	s.logger.Info("item given", "item_id", itemID, "owner_id", ownerID, "requester_id", requesterID,
		"rejected", len(res.Rejected))
	return h, nil
}

// SendMessage posts a user message into a conversation.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID int64, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > model.MaxMessageLength {
		return nil, fmt.Errorf("%w: message longer than %d characters", ErrInvalidInput, model.MaxMessageLength)
	}

	msg, conv, err := store.SendMessage(ctx, s.db, conversationID, senderID, content)
	if err != nil {
		return nil, err
	}

	s.publishMessage(msg)
	s.publishConversation(realtime.Update, conv)
	return msg, nil
}

// MarkRead resets the caller's unread state on a conversation.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID int64) (*model.Conversation, error) {
	conv, err := store.MarkRead(ctx, s.db, conversationID, userID)
	if err != nil {
		return nil, err
	}
	s.publishConversation(realtime.Update, conv)
	return conv, nil
}

// ConversationView is a conversation as seen by one participant.
type ConversationView struct {
	*model.Conversation
	Side     string `json:"side"`
	Unread   int    `json:"unread"`
	IsLocked bool   `json:"is_locked"`
	CanSend  bool   `json:"can_send"`
}

// View evaluates lock state and unread count for userID.
func View(conv *model.Conversation, item *model.Item, userID int64) ConversationView {
	side := conv.SideOf(userID)
	locked := model.IsLocked(conv, item, userID)
	return ConversationView{
		Conversation: conv,
		Side:         side,
		Unread:       conv.UnreadFor(side),
		IsLocked:     locked,
		CanSend:      !locked,
	}
}

// ViewFromList evaluates a listed conversation using its joined item status.
func ViewFromList(conv *model.Conversation, userID int64) ConversationView {
	item := &model.Item{ID: conv.ItemID, OwnerID: conv.OwnerID, Status: conv.ItemStatus}
	return View(conv, item, userID)
}

// AuthorizeSubscription allows a realtime subscription only for rows the
// user takes part in.
func (s *Service) AuthorizeSubscription(ctx context.Context, userID int64, table string, f realtime.Filter) error {
	switch {
	case table == "messages" && f.Column == "conversation_id",
		table == "conversations" && f.Column == "id":
		conv, err := store.GetConversation(ctx, s.db, f.Value)
		if err != nil {
			return err
		}
		if conv == nil || conv.SideOf(userID) == "" {
			return ErrNotAuthorized
		}
		return nil
	case table == "conversations" && f.Column == "item_id":
		item, err := store.GetItem(ctx, s.db, f.Value)
		if err != nil {
			return err
		}
		if item == nil || item.OwnerID != userID {
			return ErrNotAuthorized
		}
		return nil
	case table == "conversations" && (f.Column == "owner_id" || f.Column == "requester_id"):
		if f.Value != userID {
			return ErrNotAuthorized
		}
		return nil
	}
	return ErrNotAuthorized
}

func (s *Service) publishMessage(msg *model.Message) {
	if msg == nil {
		return
	}
	s.events.Publish(realtime.Event{
		Type:   realtime.Insert,
		Table:  "messages",
		Record: msg,
		Keys:   map[string]int64{"conversation_id": msg.ConversationID},
	})
}

func (s *Service) publishConversation(typ string, conv *model.Conversation) {
	if conv == nil {
		return
	}
	s.events.Publish(realtime.Event{
		Type:   typ,
		Table:  "conversations",
		Record: conv,
		Keys: map[string]int64{
			"id":           conv.ID,
			"item_id":      conv.ItemID,
			"owner_id":     conv.OwnerID,
			"requester_id": conv.RequesterID,
		},
	})
}

func outcome(err error) string {
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		return "not_found"
	case errors.Is(err, store.ErrConversationNotFound):
		return "no_conversation"
	case errors.Is(err, store.ErrItemAlreadyGiven):
		return "already_given"
	case errors.Is(err, store.ErrItemNotAvailable):
		return "not_available"
	case errors.Is(err, store.ErrOwnItem):
		return "own_item"
	case errors.Is(err, store.ErrConversationLocked):
		return "locked"
	}
	return "error"
}
