package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flipi-app/flipi/internal/model"
)

// RecordDonation stores a captured micro-donation. Recording the same
// provider reference twice returns the first row.
func RecordDonation(ctx context.Context, db *sql.DB, userID int64, itemID *int64, providerRef string) (*model.Donation, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO donations (user_id, item_id, amount_cents, currency, provider_ref)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (provider_ref) DO NOTHING`,
		userID, itemID, model.DonationAmountCents, model.DonationCurrency, providerRef,
	)
	if err != nil {
		return nil, fmt.Errorf("recording donation: %w", err)
	}

	d := &model.Donation{}
	err = db.QueryRowContext(ctx,
		`SELECT id, user_id, item_id, amount_cents, currency, provider_ref, created_at
		 FROM donations WHERE provider_ref = ?`, providerRef,
	).Scan(&d.ID, &d.UserID, &d.ItemID, &d.AmountCents, &d.Currency, &d.ProviderRef, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading donation: %w", err)
	}
	return d, nil
}

// DonationTotal returns the number and sum of donations made by a user.
func DonationTotal(ctx context.Context, db *sql.DB, userID int64) (count, cents int, err error) {
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM donations WHERE user_id = ?`, userID,
	).Scan(&count, &cents)
	if err != nil {
		return 0, 0, fmt.Errorf("summing donations: %w", err)
	}
	return count, cents, nil
}
