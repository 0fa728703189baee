package store

import (
	"context"
	"errors"
	"testing"

	"github.com/flipi-app/flipi/internal/db"
	"github.com/flipi-app/flipi/internal/model"
)

func testItemFields(title string) ItemFields {
	return ItemFields{
		Title:     title,
		Category:  "furniture",
		Condition: "good",
		Region:    "Osrednjeslovenska",
		Town:      "Ljubljana",
	}
}

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "owner", "hash", model.RoleUser)
	item, err := CreateItem(ctx, database, owner.ID, testItemFields("Chair"))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Title != "Chair" {
		t.Errorf("expected title 'Chair', got %q", item.Title)
	}
	if item.Status != model.ItemStatusAvailable {
		t.Errorf("expected status 'available', got %q", item.Status)
	}
	if item.OwnerName != "owner" {
		t.Errorf("expected owner name 'owner', got %q", item.OwnerName)
	}
	if item.SelectedRequesterID != nil {
		t.Error("expected no selected requester")
	}
	if len(item.Images) != 0 {
		t.Errorf("expected no images, got %v", item.Images)
	}
}

func TestListItemsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "owner", "hash", model.RoleUser)
	CreateItem(ctx, database, owner.ID, testItemFields("Chair"))

	book := testItemFields("Novel")
	book.Category = "books"
	book.Town = "Maribor"
	CreateItem(ctx, database, owner.ID, book)

	all, _ := ListItems(ctx, database, ItemFilter{})
	if len(all) != 2 {
		t.Errorf("expected 2 items, got %d", len(all))
	}

	books, _ := ListItems(ctx, database, ItemFilter{Category: "books"})
	if len(books) != 1 || books[0].Title != "Novel" {
		t.Errorf("expected only the novel, got %+v", books)
	}

	lj, _ := ListItems(ctx, database, ItemFilter{Town: "Ljubljana"})
	if len(lj) != 1 || lj[0].Title != "Chair" {
		t.Errorf("expected only the chair, got %+v", lj)
	}
}

func TestSoftDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "owner", "hash", model.RoleUser)
	item, _ := CreateItem(ctx, database, owner.ID, testItemFields("Delete Me"))

	ok, err := DeleteItem(ctx, database, item.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteItem: ok=%v err=%v", ok, err)
	}

	items, _ := ListItems(ctx, database, ItemFilter{})
	if len(items) != 0 {
		t.Errorf("expected 0 items after soft delete, got %d", len(items))
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got == nil || got.DeletedAt == nil {
		t.Fatal("expected soft-deleted item to remain fetchable")
	}
}

func TestReservedToggle(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "owner", "hash", model.RoleUser)
	other, _ := CreateUser(ctx, database, "other", "hash", model.RoleUser)
	item, _ := CreateItem(ctx, database, owner.ID, testItemFields("Lamp"))

	if ok, _ := SetItemReserved(ctx, database, item.ID, other.ID, true); ok {
		t.Error("non-owner must not reserve")
	}

	if ok, err := SetItemReserved(ctx, database, item.ID, owner.ID, true); err != nil || !ok {
		t.Fatalf("SetItemReserved: ok=%v err=%v", ok, err)
	}
	got, _ := GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusReserved {
		t.Errorf("expected reserved, got %q", got.Status)
	}

	SetItemReserved(ctx, database, item.ID, owner.ID, false)
	got, _ = GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusAvailable {
		t.Errorf("expected available, got %q", got.Status)
	}
}

func TestGivenItemIsFrozen(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "owner", "hash", model.RoleUser)
	req, _ := CreateUser(ctx, database, "req", "hash", model.RoleUser)
	item, _ := CreateItem(ctx, database, owner.ID, testItemFields("Desk"))

	RequestItem(ctx, database, item.ID, req.ID, "")
	if _, err := GiveItem(ctx, database, item.ID, owner.ID, req.ID); err != nil {
		t.Fatalf("GiveItem: %v", err)
	}

	if ok, _ := SetItemReserved(ctx, database, item.ID, owner.ID, false); ok {
		t.Error("given item must not return to available")
	}
	if ok, _ := UpdateItem(ctx, database, item.ID, owner.ID, testItemFields("Renamed")); ok {
		t.Error("given item must not be editable")
	}
	if ok, _ := DeleteItem(ctx, database, item.ID); ok {
		t.Error("given item must not be deletable")
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusGiven || got.Title != "Desk" {
		t.Errorf("unexpected item after frozen edits: %+v", got)
	}
}

func TestItemImages(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "owner", "hash", model.RoleUser)
	item, _ := CreateItem(ctx, database, owner.ID, testItemFields("Sofa"))

	for i := 0; i < model.MaxItemImages; i++ {
		pos, err := AddItemImage(ctx, database, item.ID, "/api/images/"+string(rune('a'+i)))
		if err != nil {
			t.Fatalf("AddItemImage %d: %v", i, err)
		}
		if pos != i {
			t.Errorf("expected position %d, got %d", i, pos)
		}
	}

	if _, err := AddItemImage(ctx, database, item.ID, "/api/images/z"); !errors.Is(err, ErrTooManyImages) {
		t.Fatalf("expected ErrTooManyImages, got %v", err)
	}

	ok, err := RemoveItemImage(ctx, database, item.ID, 1)
	if err != nil || !ok {
		t.Fatalf("RemoveItemImage: ok=%v err=%v", ok, err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if len(got.Images) != model.MaxItemImages-1 {
		t.Fatalf("expected %d images, got %d", model.MaxItemImages-1, len(got.Images))
	}
	if got.Images[0] != "/api/images/a" || got.Images[1] != "/api/images/c" {
		t.Errorf("unexpected order after removal: %v", got.Images)
	}

	// Positions are contiguous again, so the next image goes last.
	pos, err := AddItemImage(ctx, database, item.ID, "/api/images/y")
	if err != nil {
		t.Fatalf("AddItemImage after removal: %v", err)
	}
	if pos != model.MaxItemImages-1 {
		t.Errorf("expected position %d, got %d", model.MaxItemImages-1, pos)
	}

	if ok, _ := RemoveItemImage(ctx, database, item.ID, 42); ok {
		t.Error("expected false for missing position")
	}
}
