package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/flipi-app/flipi/internal/db"
	"github.com/flipi-app/flipi/internal/model"
)

func TestAwardPointsRegularAndCampaign(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "giver", "hash", model.RoleUser)

	p, err := AwardPoints(ctx, database, user.ID, false)
	if err != nil {
		t.Fatalf("AwardPoints: %v", err)
	}
	if p.Points != 1 || p.ItemsGiven != 1 || p.CampaignItems != 0 {
		t.Errorf("after regular item: %+v", p)
	}

	p, err = AwardPoints(ctx, database, user.ID, true)
	if err != nil {
		t.Fatalf("AwardPoints: %v", err)
	}
	if p.Points != 6 || p.ItemsGiven != 2 || p.CampaignItems != 1 {
		t.Errorf("after campaign item: %+v", p)
	}
	if p.Rank != model.RankHelper {
		t.Errorf("expected helper at 6 points, got %q", p.Rank)
	}
}

func TestAwardPointsUnknownUser(t *testing.T) {
	database := db.NewTestDB(t)

	if _, err := AwardPoints(context.Background(), database, 999, false); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestAwardPointsPropagatesDatabaseError(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer database.Close()

	mock.ExpectExec("UPDATE users").
		WithArgs(model.PointsCampaignItem, 1, int64(7)).
		WillReturnError(errors.New("database is locked"))

	if _, err := AwardPoints(context.Background(), database, 7, true); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
