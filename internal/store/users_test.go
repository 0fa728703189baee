package store

import (
	"context"
	"testing"

	"github.com/flipi-app/flipi/internal/db"
	"github.com/flipi-app/flipi/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "testuser", "hash123", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", user.Username)
	}
	if user.FullName != "testuser" {
		t.Errorf("expected full name to default to username, got %q", user.FullName)
	}
	if user.Points != 0 {
		t.Errorf("expected 0 points, got %d", user.Points)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Role != model.RoleUser {
		t.Errorf("expected role 'user', got %q", got.Role)
	}
}

func TestRegisterUserStoresProfile(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := RegisterUser(ctx, database, "ana", "hash", "Ana Novak", "Gorenjska", "Kranj")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if user.Role != model.RoleUser {
		t.Errorf("expected role 'user', got %q", user.Role)
	}
	if user.FullName != "Ana Novak" || user.Region != "Gorenjska" || user.Town != "Kranj" {
		t.Errorf("unexpected profile: %+v", user)
	}
	if user.Profile().Rank != model.RankSeed {
		t.Errorf("expected seed rank, got %q", user.Profile().Rank)
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateUser(ctx, database, "dup", "hash", model.RoleUser); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := CreateUser(ctx, database, "dup", "hash", model.RoleUser)
	if !isUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "hash", model.RoleAdmin)

	user, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("expected alice, got %+v", user)
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "keep", "hash", model.RoleUser)
	user, _ := CreateUser(ctx, database, "deleteme", "hash", model.RoleUser)
	DeleteUser(ctx, database, user.ID)

	users, _ := ListUsers(ctx, database)
	if len(users) != 1 {
		t.Errorf("expected 1 user after delete, got %d", len(users))
	}

	// The username is free again.
	if _, err := CreateUser(ctx, database, "deleteme", "hash", model.RoleUser); err != nil {
		t.Fatalf("recreating deleted username: %v", err)
	}
}

func TestUpdateProfileAndAvatar(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pr", "hash", model.RoleUser)
	if err := UpdateProfile(ctx, database, user.ID, "Petra R", "Obalna", "Koper"); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if err := SetAvatar(ctx, database, user.ID, "/api/images/abc"); err != nil {
		t.Fatalf("SetAvatar: %v", err)
	}

	got, _ := GetUser(ctx, database, user.ID)
	if got.FullName != "Petra R" || got.Town != "Koper" || got.AvatarURL != "/api/images/abc" {
		t.Errorf("unexpected user: %+v", got)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pwuser", "oldhash", model.RoleUser)
	UpdateUserPassword(ctx, database, user.ID, "newhash")

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
}

func TestListTopProfiles(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a, _ := CreateUser(ctx, database, "a", "hash", model.RoleUser)
	b, _ := CreateUser(ctx, database, "b", "hash", model.RoleUser)
	CreateUser(ctx, database, "c", "hash", model.RoleUser)

	AwardPoints(ctx, database, a.ID, false)
	AwardPoints(ctx, database, b.ID, true)

	top, err := ListTopProfiles(ctx, database, 10)
	if err != nil {
		t.Fatalf("ListTopProfiles: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 scoring profiles, got %d", len(top))
	}
	if top[0].ID != b.ID || top[0].Points != 5 {
		t.Errorf("expected b first with 5 points, got %+v", top[0])
	}
	if top[0].Rank != model.RankHelper {
		t.Errorf("expected helper rank at 5 points, got %q", top[0].Rank)
	}
}
