package model

import "time"

// Conversation is the negotiation thread between one requester and the
// owner of an item. It is also the unit of accept/reject decisions.
type Conversation struct {
	ID                   int64      `json:"id"`
	ItemID               int64      `json:"item_id"`
	RequesterID          int64      `json:"requester_id"`
	OwnerID              int64      `json:"owner_id"`
	Status               string     `json:"status"`
	OwnerUnreadCount     int        `json:"owner_unread_count"`
	RequesterUnreadCount int        `json:"requester_unread_count"`
	IsReadByOwner        bool       `json:"is_read_by_owner"`
	IsReadByRequester    bool       `json:"is_read_by_requester"`
	LastMessageAt        *time.Time `json:"last_message_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`

	// Joined fields (not always populated).
	ItemTitle     string `json:"item_title,omitempty"`
	ItemStatus    string `json:"item_status,omitempty"`
	RequesterName string `json:"requester_name,omitempty"`
	OwnerName     string `json:"owner_name,omitempty"`
}

// Conversation statuses.
const (
	ConversationPending  = "pending"
	ConversationAccepted = "accepted"
	ConversationRejected = "rejected"
)

// Participant roles within a conversation.
const (
	SideOwner     = "owner"
	SideRequester = "requester"
)

// SideOf returns the role userID plays in the conversation, or "" when the
// user is not a participant. The owner side wins if both ids match.
func (c *Conversation) SideOf(userID int64) string {
	switch userID {
	case c.OwnerID:
		return SideOwner
	case c.RequesterID:
		return SideRequester
	default:
		return ""
	}
}

// UnreadFor returns the unread counter of the given side.
func (c *Conversation) UnreadFor(side string) int {
	switch side {
	case SideOwner:
		return c.OwnerUnreadCount
	case SideRequester:
		return c.RequesterUnreadCount
	default:
		return 0
	}
}

// Counterpart returns the opposite side.
func Counterpart(side string) string {
	if side == SideOwner {
		return SideRequester
	}
	return SideOwner
}
