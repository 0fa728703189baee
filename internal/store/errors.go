package store

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Errors returned by the item lifecycle operations.
var (
	ErrItemNotFound         = errors.New("item not found")
	ErrItemNotAvailable     = errors.New("item is no longer available")
	ErrItemAlreadyGiven     = errors.New("item already given")
	ErrOwnItem              = errors.New("cannot request your own item")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationLocked   = errors.New("conversation is locked")
	ErrTooManyImages        = errors.New("too many images")
	ErrAlreadyReviewed      = errors.New("item already reviewed")
	ErrNotGiven             = errors.New("item has not been given yet")
)

// isUniqueViolation reports whether err comes from a UNIQUE or PRIMARY KEY
// constraint.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
