package model

import "time"

// Item is a physical good listed for free donation.
type Item struct {
	ID                  int64      `json:"id"`
	OwnerID             int64      `json:"owner_id"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	Category            string     `json:"category"`
	Condition           string     `json:"condition"`
	Images              []string   `json:"images"`
	Region              string     `json:"region"`
	Town                string     `json:"town"`
	Status              string     `json:"status"`
	SelectedRequesterID *int64     `json:"selected_requester_id,omitempty"`
	CampaignID          *int64     `json:"campaign_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	OwnerName string `json:"owner_name,omitempty"`
}

// IsCampaignItem reports whether the item was listed under a campaign.
func (i *Item) IsCampaignItem() bool {
	return i.CampaignID != nil
}

// Item statuses.
const (
	ItemStatusAvailable = "available"
	ItemStatusReserved  = "reserved"
	ItemStatusGiven     = "given"
)

// MaxItemImages is the number of images an item may carry.
const MaxItemImages = 8

// Categories lists the accepted item categories.
var Categories = []string{
	"clothing",
	"furniture",
	"electronics",
	"books",
	"kids",
	"household",
	"sports",
	"other",
}

// Conditions lists the accepted item conditions.
var Conditions = []string{
	"new",
	"like_new",
	"good",
	"fair",
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c string) bool {
	return contains(Categories, c)
}

// ValidCondition reports whether c is a known condition.
func ValidCondition(c string) bool {
	return contains(Conditions, c)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
