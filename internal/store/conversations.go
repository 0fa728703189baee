package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flipi-app/flipi/internal/model"
)

const conversationColumns = `c.id, c.item_id, c.requester_id, c.owner_id, c.status,
	c.owner_unread_count, c.requester_unread_count, c.is_read_by_owner, c.is_read_by_requester,
	c.last_message_at, c.created_at,
	i.title AS item_title, i.status AS item_status, r.full_name AS requester_name, o.full_name AS owner_name`

const conversationJoins = `FROM conversations c
	JOIN items i ON i.id = c.item_id
	JOIN users r ON r.id = c.requester_id
	JOIN users o ON o.id = c.owner_id`

func scanConversation(row rowScanner) (*model.Conversation, error) {
	c := &model.Conversation{}
	err := row.Scan(&c.ID, &c.ItemID, &c.RequesterID, &c.OwnerID, &c.Status,
		&c.OwnerUnreadCount, &c.RequesterUnreadCount, &c.IsReadByOwner, &c.IsReadByRequester,
		&c.LastMessageAt, &c.CreatedAt,
		&c.ItemTitle, &c.ItemStatus, &c.RequesterName, &c.OwnerName)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation returns a conversation by ID.
func GetConversation(ctx context.Context, db *sql.DB, id int64) (*model.Conversation, error) {
	return getConversation(ctx, db, id)
}

func getConversation(ctx context.Context, q querier, id int64) (*model.Conversation, error) {
	c, err := scanConversation(q.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` `+conversationJoins+` WHERE c.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	return c, nil
}

// GetConversationForRequester returns the conversation a requester has on an item.
func GetConversationForRequester(ctx context.Context, db *sql.DB, itemID, requesterID int64) (*model.Conversation, error) {
	return conversationForRequester(ctx, db, itemID, requesterID)
}

func conversationForRequester(ctx context.Context, q querier, itemID, requesterID int64) (*model.Conversation, error) {
	c, err := scanConversation(q.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` `+conversationJoins+`
		 WHERE c.item_id = ? AND c.requester_id = ?`, itemID, requesterID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation for requester: %w", err)
	}
	return c, nil
}

// ListConversationsForUser returns every conversation the user takes part
// in, most recent activity first.
func ListConversationsForUser(ctx context.Context, db *sql.DB, userID int64) ([]model.Conversation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+conversationColumns+` `+conversationJoins+`
		 WHERE c.owner_id = ? OR c.requester_id = ?
		 ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, c.id DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	return scanConversations(rows)
}

// ListItemConversations returns all conversations of an item, oldest first.
func ListItemConversations(ctx context.Context, db *sql.DB, itemID int64) ([]model.Conversation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+conversationColumns+` `+conversationJoins+`
		 WHERE c.item_id = ? ORDER BY c.id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item conversations: %w", err)
	}
	defer rows.Close()

	return scanConversations(rows)
}

func scanConversations(rows *sql.Rows) ([]model.Conversation, error) {
	var convs []model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

// UnreadTotal sums the unread counters of the user's own side across all
// conversations.
func UnreadTotal(ctx context.Context, db *sql.DB, userID int64) (int, error) {
	var total int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(
		     CASE WHEN owner_id = ? THEN owner_unread_count ELSE 0 END +
		     CASE WHEN requester_id = ? THEN requester_unread_count ELSE 0 END), 0)
		 FROM conversations WHERE owner_id = ? OR requester_id = ?`,
		userID, userID, userID, userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("counting unread: %w", err)
	}
	return total, nil
}

// MarkRead resets the caller's own unread counter and read flag. The other
// side is never touched.
func MarkRead(ctx context.Context, db *sql.DB, conversationID, userID int64) (*model.Conversation, error) {
	conv, err := getConversation(ctx, db, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	var query string
	switch conv.SideOf(userID) {
	case model.SideOwner:
		query = `UPDATE conversations SET owner_unread_count = 0, is_read_by_owner = 1 WHERE id = ?`
	case model.SideRequester:
		query = `UPDATE conversations SET requester_unread_count = 0, is_read_by_requester = 1 WHERE id = ?`
	default:
		return nil, ErrConversationNotFound
	}

	if _, err := db.ExecContext(ctx, query, conversationID); err != nil {
		return nil, fmt.Errorf("marking conversation read: %w", err)
	}
	return getConversation(ctx, db, conversationID)
}

// RequestResult is the outcome of RequestItem.
type RequestResult struct {
	Conversation *model.Conversation
	// Created is false when the requester already had a conversation.
	Created  bool
	Messages []model.Message
}

// RequestItem opens a conversation between requesterID and the item owner.
// The conversation, the delivery note and the optional requester note are
// written in one transaction. If the pair already has a conversation it is
// returned unchanged and nothing is written.
func RequestItem(ctx context.Context, db *sql.DB, itemID, requesterID int64, note string) (*RequestResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, ErrItemNotFound
	}
	if item.OwnerID == requesterID {
		return nil, ErrOwnItem
	}

	existing, err := conversationForRequester(ctx, tx, itemID, requesterID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &RequestResult{Conversation: existing}, nil
	}

	if item.Status == model.ItemStatusGiven {
		return nil, ErrItemNotAvailable
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (item_id, requester_id, owner_id, status, is_read_by_owner, is_read_by_requester)
		 VALUES (?, ?, ?, 'pending', 0, 1)`,
		itemID, requesterID, item.OwnerID,
	)
	if isUniqueViolation(err) {
		// Lost a race with a concurrent request by the same requester.
		tx.Rollback()
		existing, err := conversationForRequester(ctx, db, itemID, requesterID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, ErrConversationNotFound
		}
		return &RequestResult{Conversation: existing}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	convID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting conversation id: %w", err)
	}

	var msgs []model.Message
	msg, err := insertMessage(ctx, tx, convID, nil, model.DeliveryNote, model.SideOwner)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, *msg)

	if note != "" {
		msg, err := insertMessage(ctx, tx, convID, &requesterID, note, model.SideOwner)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *msg)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing request: %w", err)
	}

	conv, err := getConversation(ctx, db, convID)
	if err != nil {
		return nil, err
	}
	return &RequestResult{Conversation: conv, Created: true, Messages: msgs}, nil
}

// GiveResult is the outcome of GiveItem.
type GiveResult struct {
	Item     *model.Item
	Accepted *model.Conversation
	// Rejected holds the sibling conversations flipped to rejected by this call.
	Rejected []model.Conversation
	Messages []model.Message
}

// GiveItem hands an item to one requester. In a single transaction it
// accepts the requester's conversation, marks the item given (only if it is
// still available or reserved), rejects every other conversation of the item
// and posts the handover and rejection notices. A second call on the same
// item fails with ErrItemAlreadyGiven and changes nothing.
func GiveItem(ctx context.Context, db *sql.DB, itemID, ownerID, requesterID int64) (*GiveResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, ErrItemNotFound
	}
	if item.OwnerID != ownerID {
		return nil, ErrConversationNotFound
	}
	if item.Status == model.ItemStatusGiven {
		return nil, ErrItemAlreadyGiven
	}

	conv, err := conversationForRequester(ctx, tx, itemID, requesterID)
	if err != nil {
		return nil, err
	}
	if conv == nil || conv.OwnerID != ownerID {
		return nil, ErrConversationNotFound
	}

	// Accept the chosen conversation first.
	result, err := tx.ExecContext(ctx,
		`UPDATE conversations SET status = 'accepted' WHERE id = ? AND status = 'pending'`, conv.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("accepting conversation: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("accepting conversation: %w", err)
	} else if n == 0 {
		return nil, ErrConversationLocked
	}

	// Conditional update: only one give can ever win.
	result, err = tx.ExecContext(ctx,
		`UPDATE items SET status = 'given', selected_requester_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ? AND deleted_at IS NULL AND status IN ('available', 'reserved')`,
		requesterID, itemID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("marking item given: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("marking item given: %w", err)
	} else if n == 0 {
		return nil, ErrItemAlreadyGiven
	}

	pendingIDs, err := pendingSiblings(ctx, tx, itemID, conv.ID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET status = 'rejected' WHERE item_id = ? AND id <> ?`,
		itemID, conv.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("rejecting other requesters: %w", err)
	}

	var msgs []model.Message
	msg, err := insertMessage(ctx, tx, conv.ID, nil, model.HandoverNotice, model.SideRequester)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, *msg)

	for _, id := range pendingIDs {
		msg, err := insertMessage(ctx, tx, id, nil, model.RejectionNotice, model.SideRequester)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *msg)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing give: %w", err)
	}

	res := &GiveResult{Messages: msgs}
	if res.Item, err = getItem(ctx, db, itemID); err != nil {
		return nil, err
	}
	if res.Accepted, err = getConversation(ctx, db, conv.ID); err != nil {
		return nil, err
	}
	for _, id := range pendingIDs {
		c, err := getConversation(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if c != nil {
			res.Rejected = append(res.Rejected, *c)
		}
	}
	return res, nil
}

func pendingSiblings(ctx context.Context, q querier, itemID, acceptedID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id FROM conversations WHERE item_id = ? AND id <> ? AND status = 'pending' ORDER BY id`,
		itemID, acceptedID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sibling conversations: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning sibling conversation: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
