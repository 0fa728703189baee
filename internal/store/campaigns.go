package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flipi-app/flipi/internal/model"
)

// CreateCampaign creates an active campaign.
func CreateCampaign(ctx context.Context, db *sql.DB, name, description string) (*model.Campaign, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO campaigns (name, description) VALUES (?, ?)`,
		name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting campaign id: %w", err)
	}

	return GetCampaign(ctx, db, id)
}

// GetCampaign returns a campaign by ID.
func GetCampaign(ctx context.Context, db *sql.DB, id int64) (*model.Campaign, error) {
	c := &model.Campaign{}
	var description sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, description, active, created_at FROM campaigns WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &description, &c.Active, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting campaign: %w", err)
	}
	c.Description = description.String
	return c, nil
}

// ListCampaigns returns campaigns, optionally only the active ones.
func ListCampaigns(ctx context.Context, db *sql.DB, activeOnly bool) ([]model.Campaign, error) {
	query := `SELECT id, name, description, active, created_at FROM campaigns`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		var c model.Campaign
		var description sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &description, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning campaign: %w", err)
		}
		c.Description = description.String
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// UpdateCampaign updates a campaign.
func UpdateCampaign(ctx context.Context, db *sql.DB, id int64, name, description string, active bool) error {
	_, err := db.ExecContext(ctx,
		`UPDATE campaigns SET name = ?, description = ?, active = ? WHERE id = ?`,
		name, description, active, id,
	)
	if err != nil {
		return fmt.Errorf("updating campaign: %w", err)
	}
	return nil
}
