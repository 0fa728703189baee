package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flipi-app/flipi/internal/model"
)

// ItemFields holds the owner-editable attributes of an item.
type ItemFields struct {
	Title       string
	Description string
	Category    string
	Condition   string
	Region      string
	Town        string
	CampaignID  *int64
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	OwnerID    int64
	CampaignID int64
	Status     string
	Category   string
	Region     string
	Town       string
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const itemColumns = `i.id, i.owner_id, i.title, i.description, i.category, i.condition, i.region, i.town,
	i.status, i.selected_requester_id, i.campaign_id, i.created_at, i.updated_at, i.deleted_at,
	u.full_name AS owner_name`

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var description sql.NullString
	err := row.Scan(&item.ID, &item.OwnerID, &item.Title, &description, &item.Category, &item.Condition,
		&item.Region, &item.Town, &item.Status, &item.SelectedRequesterID, &item.CampaignID,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt, &item.OwnerName)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.Images = []string{}
	return item, nil
}

// CreateItem creates a new available item owned by ownerID.
func CreateItem(ctx context.Context, db *sql.DB, ownerID int64, f ItemFields) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (owner_id, title, description, category, condition, region, town, campaign_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID, f.Title, f.Description, f.Category, f.Condition, f.Region, f.Town, f.CampaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted items.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	return getItem(ctx, db, id)
}

func getItem(ctx context.Context, q querier, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+`
		 FROM items i JOIN users u ON u.id = i.owner_id
		 WHERE i.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	item.Images, err = itemImages(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns non-deleted items matching the filter, newest first.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + `
	          FROM items i JOIN users u ON u.id = i.owner_id
	          WHERE i.deleted_at IS NULL`
	var args []any

	if f.OwnerID > 0 {
		query += ` AND i.owner_id = ?`
		args = append(args, f.OwnerID)
	}
	if f.CampaignID > 0 {
		query += ` AND i.campaign_id = ?`
		args = append(args, f.CampaignID)
	}
	if f.Status != "" {
		query += ` AND i.status = ?`
		args = append(args, f.Status)
	}
	if f.Category != "" {
		query += ` AND i.category = ?`
		args = append(args, f.Category)
	}
	if f.Region != "" {
		query += ` AND i.region = ?`
		args = append(args, f.Region)
	}
	if f.Town != "" {
		query += ` AND i.town = ?`
		args = append(args, f.Town)
	}

	query += ` ORDER BY i.created_at DESC, i.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	rows.Close()

	// Images are loaded after the item cursor is released.
	for i := range items {
		items[i].Images, err = itemImages(ctx, db, items[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

// UpdateItem updates an item's metadata. Only the owner may edit, and a
// given item is frozen. Returns false when nothing matched.
func UpdateItem(ctx context.Context, db *sql.DB, id, ownerID int64, f ItemFields) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ?, category = ?, condition = ?, region = ?, town = ?,
		        campaign_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ? AND deleted_at IS NULL AND status <> 'given'`,
		f.Title, f.Description, f.Category, f.Condition, f.Region, f.Town, f.CampaignID, id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}
	return n > 0, nil
}

// SetItemReserved toggles an item between available and reserved. Given
// items never leave the given state.
func SetItemReserved(ctx context.Context, db *sql.DB, id, ownerID int64, reserved bool) (bool, error) {
	status := model.ItemStatusAvailable
	if reserved {
		status = model.ItemStatusReserved
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ? AND deleted_at IS NULL AND status IN ('available', 'reserved')`,
		status, id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("setting item status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting item status: %w", err)
	}
	return n > 0, nil
}

// DeleteItem soft-deletes an item that has not been given.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND status <> 'given'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	return n > 0, nil
}

// AddItemImage appends an image URL to the item's ordered image list and
// returns its position.
func AddItemImage(ctx context.Context, db *sql.DB, itemID int64, url string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count, next int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(position), -1) + 1 FROM item_images WHERE item_id = ?`, itemID,
	).Scan(&count, &next)
	if err != nil {
		return 0, fmt.Errorf("counting item images: %w", err)
	}
	if count >= model.MaxItemImages {
		return 0, ErrTooManyImages
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO item_images (item_id, position, url) VALUES (?, ?, ?)`,
		itemID, next, url,
	)
	if err != nil {
		return 0, fmt.Errorf("adding item image: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("touching item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing item image: %w", err)
	}
	return next, nil
}

// RemoveItemImage removes the image at position and closes the gap so
// positions stay contiguous. Returns false when there was no such image.
func RemoveItemImage(ctx context.Context, db *sql.DB, itemID int64, position int) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM item_images WHERE item_id = ? AND position = ?`, itemID, position,
	)
	if err != nil {
		return false, fmt.Errorf("removing item image: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("removing item image: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	// Shift in two passes so the (item_id, position) key never collides.
	if _, err := tx.ExecContext(ctx,
		`UPDATE item_images SET position = -position WHERE item_id = ? AND position > ?`,
		itemID, position,
	); err != nil {
		return false, fmt.Errorf("reordering item images: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE item_images SET position = -position - 1 WHERE item_id = ? AND position < 0`,
		itemID,
	); err != nil {
		return false, fmt.Errorf("reordering item images: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing image removal: %w", err)
	}
	return true, nil
}

func itemImages(ctx context.Context, q querier, itemID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT url FROM item_images WHERE item_id = ? ORDER BY position`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item images: %w", err)
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scanning item image: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// DeleteItemsByOwner soft-deletes every listing of ownerID that has not been
// given and returns how many were removed.
func DeleteItemsByOwner(ctx context.Context, db *sql.DB, ownerID int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP
		 WHERE owner_id = ? AND deleted_at IS NULL AND status <> 'given'`,
		ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting items of owner: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting items of owner: %w", err)
	}
	return n, nil
}
