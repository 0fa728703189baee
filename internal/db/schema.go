package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id             INTEGER PRIMARY KEY,
    username       TEXT NOT NULL,
    password_hash  TEXT NOT NULL,
    role           TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    full_name      TEXT NOT NULL DEFAULT '',
    avatar_url     TEXT,
    region         TEXT,
    town           TEXT,
    points         INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
    items_given    INTEGER NOT NULL DEFAULT 0,
    campaign_items INTEGER NOT NULL DEFAULT 0,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at     DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS campaigns (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT,
    active      INTEGER NOT NULL DEFAULT 1,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id                    INTEGER PRIMARY KEY,
    owner_id              INTEGER NOT NULL REFERENCES users(id),
    title                 TEXT NOT NULL,
    description           TEXT,
    category              TEXT NOT NULL,
    condition             TEXT NOT NULL,
    region                TEXT NOT NULL,
    town                  TEXT NOT NULL,
    status                TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'reserved', 'given')),
    selected_requester_id INTEGER REFERENCES users(id),
    campaign_id           INTEGER REFERENCES campaigns(id),
    created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at            DATETIME,
    CHECK (status <> 'given' OR selected_requester_id IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);
CREATE INDEX IF NOT EXISTS idx_items_browse ON items(status, region, town) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS item_images (
    item_id  INTEGER NOT NULL REFERENCES items(id),
    position INTEGER NOT NULL,
    url      TEXT NOT NULL,
    PRIMARY KEY (item_id, position)
);

CREATE TABLE IF NOT EXISTS conversations (
    id                     INTEGER PRIMARY KEY,
    item_id                INTEGER NOT NULL REFERENCES items(id),
    requester_id           INTEGER NOT NULL REFERENCES users(id),
    owner_id               INTEGER NOT NULL REFERENCES users(id),
    status                 TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected')),
    owner_unread_count     INTEGER NOT NULL DEFAULT 0,
    requester_unread_count INTEGER NOT NULL DEFAULT 0,
    is_read_by_owner       INTEGER NOT NULL DEFAULT 0,
    is_read_by_requester   INTEGER NOT NULL DEFAULT 1,
    last_message_at        DATETIME,
    created_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_item_requester
    ON conversations(item_id, requester_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_one_accepted
    ON conversations(item_id) WHERE status = 'accepted';

CREATE TABLE IF NOT EXISTS messages (
    id              INTEGER PRIMARY KEY,
    conversation_id INTEGER NOT NULL REFERENCES conversations(id),
    sender_id       INTEGER REFERENCES users(id),
    content         TEXT NOT NULL,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);

CREATE TABLE IF NOT EXISTS reviews (
    id          INTEGER PRIMARY KEY,
    item_id     INTEGER NOT NULL UNIQUE REFERENCES items(id),
    reviewer_id INTEGER NOT NULL REFERENCES users(id),
    reviewee_id INTEGER NOT NULL REFERENCES users(id),
    rating      INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
    comment     TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS donations (
    id           INTEGER PRIMARY KEY,
    user_id      INTEGER NOT NULL REFERENCES users(id),
    item_id      INTEGER REFERENCES items(id),
    amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
    currency     TEXT NOT NULL,
    provider_ref TEXT NOT NULL UNIQUE,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS images (
    key        TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    mime       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return Migrate(db)
}
