package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/vendorbot/internal/domain"
)

func TestUpsertMenuItem_CreateThenUpdateCaseInsensitive(t *testing.T) {
	db := newTestDB(t, &domain.MenuItem{})
	ctx := context.Background()

	it, created, err := UpsertMenuItem(ctx, db, "Rice", 500)
	if err != nil || !created {
		t.Fatalf("first upsert = created %v, err %v", created, err)
	}
	if err := SetMenuItemAvailability(ctx, db, it.ID, false); err != nil {
		t.Fatalf("SetMenuItemAvailability: %v", err)
	}

	again, created, err := UpsertMenuItem(ctx, db, "rice", 650)
	if err != nil || created {
		t.Fatalf("second upsert = created %v, err %v", created, err)
	}
	if again.ID != it.ID || again.Price != 650 || !again.IsAvailable || again.Name != "Rice" {
		t.Fatalf("unexpected updated item: %+v", again)
	}

	var n int64
	db.Model(&domain.MenuItem{}).Count(&n)
	if n != 1 {
		t.Fatalf("want one item, got %d", n)
	}
}

func TestListAvailableMenuItems_FiltersAndOrders(t *testing.T) {
	db := newTestDB(t, &domain.MenuItem{})
	ctx := context.Background()
	for _, n := range []string{"water", "Beef", "Chicken"} {
		if _, _, err := UpsertMenuItem(ctx, db, n, 100); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	beef, _ := GetMenuItemByName(ctx, db, "BEEF")
	_ = SetMenuItemAvailability(ctx, db, beef.ID, false)

	got, err := ListAvailableMenuItems(ctx, db)
	if err != nil {
		t.Fatalf("ListAvailableMenuItems: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Chicken" || got[1].Name != "water" {
		t.Fatalf("unexpected available list: %+v", got)
	}

	all, _ := ListMenuItemsNameLike(ctx, db, "e")
	if len(all) != 3 || all[0].Name != "Beef" || all[0].IsAvailable {
		t.Fatalf("unexpected full list: %+v", all)
	}
}

func TestListMenuItemsNameLike(t *testing.T) {
	db := newTestDB(t, &domain.MenuItem{})
	ctx := context.Background()
	for _, n := range []string{"Fried Rice", "Jollof Rice", "Rice"} {
		_, _, _ = UpsertMenuItem(ctx, db, n, 500)
	}
	got, err := ListMenuItemsNameLike(ctx, db, "rice")
	if err != nil {
		t.Fatalf("ListMenuItemsNameLike: %v", err)
	}
	if len(got) != 3 || got[0].Name != "Fried Rice" || got[2].Name != "Rice" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestGetMenuItemByName_Missing(t *testing.T) {
	db := newTestDB(t, &domain.MenuItem{})
	if _, err := GetMenuItemByName(context.Background(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := SetMenuItemAvailability(context.Background(), db, 42, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMenuItems_AccentedNamesFoldInGo(t *testing.T) {
	db := newTestDB(t, &domain.MenuItem{})
	ctx := context.Background()

	first, created, err := UpsertMenuItem(ctx, db, "Égusi", 500)
	if err != nil || !created {
		t.Fatalf("first upsert = created %v, err %v", created, err)
	}
	again, created, err := UpsertMenuItem(ctx, db, "égusi", 700)
	if err != nil || created || again.ID != first.ID || again.Price != 700 {
		t.Fatalf("case variant must update the same row: created=%v item=%+v err=%v", created, again, err)
	}
	var n int64
	db.Model(&domain.MenuItem{}).Count(&n)
	if n != 1 {
		t.Fatalf("want one item, got %d", n)
	}

	_, _, _ = UpsertMenuItem(ctx, db, "Égusi Soup", 900)
	for _, frag := range []string{"Égusi", "égusi", "ÉGUSI", "soup"} {
		got, err := ListMenuItemsNameLike(ctx, db, frag)
		if err != nil || len(got) == 0 {
			t.Fatalf("ListMenuItemsNameLike(%q) = %+v, %v", frag, got, err)
		}
	}
	if got, err := GetMenuItemByName(ctx, db, "ÉGUSI SOUP"); err != nil || got.Name != "Égusi Soup" {
		t.Fatalf("GetMenuItemByName: %+v, %v", got, err)
	}
}
