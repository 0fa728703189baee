package model

import "time"

// Campaign groups items listed for a themed collection drive. Giving a
// campaign item earns more points.
type Campaign struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Review is the giver's feedback on the member who received an item.
type Review struct {
	ID         int64     `json:"id"`
	ItemID     int64     `json:"item_id"`
	ReviewerID int64     `json:"reviewer_id"`
	RevieweeID int64     `json:"reviewee_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Donation records a micro-donation captured by the payment widget.
type Donation struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ItemID      *int64    `json:"item_id,omitempty"`
	AmountCents int       `json:"amount_cents"`
	Currency    string    `json:"currency"`
	ProviderRef string    `json:"provider_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

// Fixed donation offered after a handover.
const (
	DonationAmountCents = 100
	DonationCurrency    = "EUR"
)
