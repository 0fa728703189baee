package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flipi-app/flipi/internal/model"
)

// CreateReview records the giver's review of the member who received the
// item. Only the owner of a given item may review, once.
func CreateReview(ctx context.Context, db *sql.DB, itemID, reviewerID int64, rating int, comment string) (*model.Review, error) {
	item, err := GetItem(ctx, db, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.OwnerID != reviewerID {
		return nil, ErrItemNotFound
	}
	if item.Status != model.ItemStatusGiven || item.SelectedRequesterID == nil {
		return nil, ErrNotGiven
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO reviews (item_id, reviewer_id, reviewee_id, rating, comment) VALUES (?, ?, ?, ?, ?)`,
		itemID, reviewerID, *item.SelectedRequesterID, rating, comment,
	)
	if isUniqueViolation(err) {
		return nil, ErrAlreadyReviewed
	}
	if err != nil {
		return nil, fmt.Errorf("creating review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting review id: %w", err)
	}
	return getReview(ctx, db, `id = ?`, id)
}

// GetReviewForItem returns the review left for an item, if any.
func GetReviewForItem(ctx context.Context, db *sql.DB, itemID int64) (*model.Review, error) {
	return getReview(ctx, db, `item_id = ?`, itemID)
}

func getReview(ctx context.Context, db *sql.DB, where string, arg any) (*model.Review, error) {
	r := &model.Review{}
	var comment sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, item_id, reviewer_id, reviewee_id, rating, comment, created_at
		 FROM reviews WHERE `+where, arg,
	).Scan(&r.ID, &r.ItemID, &r.ReviewerID, &r.RevieweeID, &r.Rating, &comment, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting review: %w", err)
	}
	r.Comment = comment.String
	return r, nil
}

// ListReviewsFor returns reviews received by a user, newest first.
func ListReviewsFor(ctx context.Context, db *sql.DB, revieweeID int64) ([]model.Review, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, item_id, reviewer_id, reviewee_id, rating, comment, created_at
		 FROM reviews WHERE reviewee_id = ? ORDER BY created_at DESC, id DESC`, revieweeID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		var comment sql.NullString
		if err := rows.Scan(&r.ID, &r.ItemID, &r.ReviewerID, &r.RevieweeID, &r.Rating, &comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		r.Comment = comment.String
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
