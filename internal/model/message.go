package model

import "time"

// Message is a single chat entry. A nil SenderID marks a system message.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       *int64    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsSystem reports whether the message was generated by the application.
func (m *Message) IsSystem() bool {
	return m.SenderID == nil
}

// System message texts.
const (
	DeliveryNote    = "Your request has been sent. The owner will reply here to arrange pickup."
	HandoverNotice  = "The owner has chosen you to receive this item. Use this chat to arrange pickup."
	RejectionNotice = "The owner has given this item to another member. Thank you for your interest."
)

// MaxMessageLength bounds the content of a single message.
const MaxMessageLength = 2000
