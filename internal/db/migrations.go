package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: index used by the conversation list, newest activity first.
	`CREATE INDEX IF NOT EXISTS idx_conversations_owner
	     ON conversations(owner_id, last_message_at)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_requester
	     ON conversations(requester_id, last_message_at)`,
	// Migration 2: leaderboard ordering.
	`CREATE INDEX IF NOT EXISTS idx_users_points
	     ON users(points DESC) WHERE deleted_at IS NULL`,
}

// Migrate applies the migration list.
func Migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
