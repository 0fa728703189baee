package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flipi-app/flipi/internal/model"
)

// AwardPoints credits a giver for one handed-over item. The delta comes from
// model.PointsFor, so points only ever grow here. Rank is not stored; it is
// derived from the new total when the profile is read.
func AwardPoints(ctx context.Context, db *sql.DB, userID int64, campaign bool) (*model.Profile, error) {
	campaignInc := 0
	if campaign {
		campaignInc = 1
	}

	result, err := db.ExecContext(ctx,
		`UPDATE users
		 SET points = points + ?, items_given = items_given + 1, campaign_items = campaign_items + ?
		 WHERE id = ?`,
		model.PointsFor(campaign), campaignInc, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("awarding points: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("awarding points: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("awarding points: user %d not found", userID)
	}

	u, err := GetUser(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("awarding points: user %d not found", userID)
	}
	p := u.Profile()
	return &p, nil
}
