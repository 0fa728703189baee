package model

import (
	"fmt"
	"time"
)

// User is an account together with its public profile.
type User struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	PasswordHash  string     `json:"-"`
	Role          string     `json:"role"`
	FullName      string     `json:"full_name"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	Region        string     `json:"region,omitempty"`
	Town          string     `json:"town,omitempty"`
	Points        int        `json:"points"`
	ItemsGiven    int        `json:"items_given"`
	CampaignItems int        `json:"campaign_items"`
	CreatedAt     time.Time  `json:"created_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// Profile is the public view of a user.
type Profile struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	FullName      string    `json:"full_name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Region        string    `json:"region,omitempty"`
	Town          string    `json:"town,omitempty"`
	Points        int       `json:"points"`
	Rank          Rank      `json:"rank"`
	ItemsGiven    int       `json:"items_given"`
	CampaignItems int       `json:"campaign_items"`
	CreatedAt     time.Time `json:"created_at"`
}

// Profile returns the public profile. Rank is derived from points on every call.
func (u *User) Profile() Profile {
	return Profile{
		ID:            u.ID,
		Username:      u.Username,
		FullName:      u.FullName,
		AvatarURL:     u.AvatarURL,
		Region:        u.Region,
		Town:          u.Town,
		Points:        u.Points,
		Rank:          RankFor(u.Points),
		ItemsGiven:    u.ItemsGiven,
		CampaignItems: u.CampaignItems,
		CreatedAt:     u.CreatedAt,
	}
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleUser:  1,
	}
	return levels[role] >= levels[minimum] && levels[minimum] > 0
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
