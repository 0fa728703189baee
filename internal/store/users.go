package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flipi-app/flipi/internal/model"
)

const userColumns = `id, username, password_hash, role, full_name, avatar_url, region, town,
	points, items_given, campaign_items, created_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	var avatar, region, town sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName, &avatar, &region, &town,
		&u.Points, &u.ItemsGiven, &u.CampaignItems, &u.CreatedAt, &u.DeletedAt)
	if err != nil {
		return nil, err
	}
	u.AvatarURL = avatar.String
	u.Region = region.String
	u.Town = town.String
	return u, nil
}

// CreateUser creates a new user.
func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash, role string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, full_name) VALUES (?, ?, ?, ?)`,
		username, passwordHash, role, username,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// RegisterUser creates a regular member account with its profile fields.
func RegisterUser(ctx context.Context, db *sql.DB, username, passwordHash, fullName, region, town string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, full_name, region, town)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		username, passwordHash, model.RoleUser, fullName, region, town,
	)
	if err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username (including soft-deleted for auth checks).
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?
		 ORDER BY deleted_at IS NULL DESC, id DESC LIMIT 1`, username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListTopProfiles returns the highest scoring members, best first.
func ListTopProfiles(ctx context.Context, db *sql.DB, limit int) ([]model.Profile, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE deleted_at IS NULL AND points > 0
		 ORDER BY points DESC, items_given DESC, id
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing top profiles: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, u.Profile())
	}
	return profiles, rows.Err()
}

// UpdateUser updates a user's role.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, role string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// UpdateProfile updates the editable profile fields of a user.
func UpdateProfile(ctx context.Context, db *sql.DB, id int64, fullName, region, town string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, region = ?, town = ? WHERE id = ? AND deleted_at IS NULL`,
		fullName, region, town, id,
	)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

// SetAvatar stores the avatar URL of a user.
func SetAvatar(ctx context.Context, db *sql.DB, id int64, url string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET avatar_url = ? WHERE id = ? AND deleted_at IS NULL`,
		url, id,
	)
	if err != nil {
		return fmt.Errorf("setting avatar: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
