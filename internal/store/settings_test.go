package store

import (
	"context"
	"testing"

	"github.com/flipi-app/flipi/internal/db"
)

func TestGetJWTSecretPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetJWTSecret: %v", err)
	}
	if len(first) != 64 { // 32 bytes hex encoded
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}

	second, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetJWTSecret: %v", err)
	}
	if first != second {
		t.Fatalf("expected stable secret, got %q and %q", first, second)
	}
}

func TestRotateJWTSecret(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	before, _ := GetJWTSecret(ctx, database)
	rotated, err := RotateJWTSecret(ctx, database)
	if err != nil {
		t.Fatalf("RotateJWTSecret: %v", err)
	}
	if rotated == before {
		t.Fatal("expected a new secret after rotation")
	}

	after, _ := GetJWTSecret(ctx, database)
	if after != rotated {
		t.Errorf("expected rotated secret to be served, got %q", after)
	}
}

func TestSettings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, ok, err := GetSetting(ctx, database, "welcome_banner"); err != nil || ok {
		t.Fatalf("expected unset setting, got ok=%v err=%v", ok, err)
	}

	SetSetting(ctx, database, "welcome_banner", "Winter coats drive")
	SetSetting(ctx, database, "welcome_banner", "Spring books drive")

	v, ok, err := GetSetting(ctx, database, "welcome_banner")
	if err != nil || !ok || v != "Spring books drive" {
		t.Errorf("expected overwritten value, got %q ok=%v err=%v", v, ok, err)
	}
}
