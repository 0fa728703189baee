package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flipi-app/flipi/internal/model"
)

// insertMessage appends a message and bumps the recipient side's unread
// counter. The sender side's counter is left alone.
func insertMessage(ctx context.Context, q querier, conversationID int64, senderID *int64, content, recipientSide string) (*model.Message, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, content) VALUES (?, ?, ?)`,
		conversationID, senderID, content,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting message id: %w", err)
	}

	var bump string
	switch recipientSide {
	case model.SideOwner:
		bump = `owner_unread_count = owner_unread_count + 1, is_read_by_owner = 0`
	case model.SideRequester:
		bump = `requester_unread_count = requester_unread_count + 1, is_read_by_requester = 0`
	default:
		return nil, fmt.Errorf("inserting message: unknown recipient side %q", recipientSide)
	}

	_, err = q.ExecContext(ctx,
		`UPDATE conversations SET `+bump+`, last_message_at = CURRENT_TIMESTAMP WHERE id = ?`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating unread counters: %w", err)
	}

	return getMessage(ctx, q, id)
}

func getMessage(ctx context.Context, q querier, id int64) (*model.Message, error) {
	m := &model.Message{}
	err := q.QueryRowContext(ctx,
		`SELECT id, conversation_id, sender_id, content, created_at FROM messages WHERE id = ?`, id,
	).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting message: %w", err)
	}
	return m, nil
}

// SendMessage posts a message from senderID into a conversation. The sender
// must be a participant and the conversation must not be locked for them.
func SendMessage(ctx context.Context, db *sql.DB, conversationID, senderID int64, content string) (*model.Message, *model.Conversation, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	conv, err := getConversation(ctx, tx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv == nil {
		return nil, nil, ErrConversationNotFound
	}
	side := conv.SideOf(senderID)
	if side == "" {
		return nil, nil, ErrConversationNotFound
	}

	item, err := getItem(ctx, tx, conv.ItemID)
	if err != nil {
		return nil, nil, err
	}
	if model.IsLocked(conv, item, senderID) {
		return nil, nil, ErrConversationLocked
	}

	msg, err := insertMessage(ctx, tx, conversationID, &senderID, content, model.Counterpart(side))
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing message: %w", err)
	}

	conv, err = getConversation(ctx, db, conversationID)
	if err != nil {
		return nil, nil, err
	}
	return msg, conv, nil
}

// ListMessages returns the messages of a conversation in posting order.
func ListMessages(ctx context.Context, db *sql.DB, conversationID int64) ([]model.Message, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, conversation_id, sender_id, content, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY id`, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
