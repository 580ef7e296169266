package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/vendorbot/internal/domain"
)

func seedCustomer(t *testing.T, s *UserService, contact, name string) *domain.User {
	t.Helper()
	u, err := s.Ensure(context.Background(), contact, name)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	return u
}

func TestOrderService_AtMostOnePending(t *testing.T) {
	db := newSvcDB(t)
	users := NewUserService(db)
	orders := NewOrderService(db)
	ctx := context.Background()
	u := seedCustomer(t, users, "234", "Emeka")

	if o, err := orders.FindPending(ctx, u.ID); err != nil || o != nil {
		t.Fatalf("want no pending order, got %+v err=%v", o, err)
	}

	lines := []domain.OrderLine{{ItemName: "Jollof Rice", Quantity: 2}}
	first, created, err := orders.CreatePending(ctx, u.ID, "2 x Jollof Rice", lines, 1000)
	if err != nil || !created {
		t.Fatalf("first CreatePending: created=%v err=%v", created, err)
	}
	second, created, err := orders.CreatePending(ctx, u.ID, "Water", nil, 100)
	if err != nil {
		t.Fatalf("second CreatePending: %v", err)
	}
	if created || second.ID != first.ID || second.Items != "2 x Jollof Rice" {
		t.Fatalf("second call must return the existing order, got created=%v %+v", created, second)
	}

	// The partial unique index rejects a raw second Pending row as well.
	raw := &domain.Order{UserID: u.ID, Items: "sneaky", Status: domain.OrderPending}
	if err := db.Create(raw).Error; err == nil {
		t.Fatalf("expected unique index violation for a second Pending order")
	}

	var n int64
	db.Model(&domain.Order{}).Where("user_id = ? AND status = ?", u.ID, domain.OrderPending).Count(&n)
	if n != 1 {
		t.Fatalf("want exactly one pending order, got %d", n)
	}

	got := Lines(first)
	if len(got) != 1 || got[0] != lines[0] {
		t.Fatalf("Lines round trip: %+v", got)
	}
	if Lines(second) == nil {
		t.Fatalf("stored lines must survive a reload")
	}
}

func TestOrderService_MarkPaid(t *testing.T) {
	db := newSvcDB(t)
	users := NewUserService(db)
	paidAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	orders := &OrderService{DB: db, Now: func() time.Time { return paidAt }}
	ctx := context.Background()
	u := seedCustomer(t, users, "234", "Emeka")

	o, _, err := orders.CreatePending(ctx, u.ID, "Assorted", nil, 0)
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	if Lines(o) != nil {
		t.Fatalf("an order without lines must decode to nil")
	}

	paid, err := orders.MarkPaid(ctx, o.ID)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if paid.Status != domain.OrderPaid || paid.PaidAt == nil || !paid.PaidAt.Equal(paidAt) {
		t.Fatalf("unexpected paid order: %+v", paid)
	}
	if _, err := orders.MarkPaid(ctx, o.ID); !errors.Is(err, ErrNoPendingOrder) {
		t.Fatalf("second MarkPaid: want ErrNoPendingOrder, got %v", err)
	}

	// A new Pending order is allowed once the previous one is Paid.
	if _, created, err := orders.CreatePending(ctx, u.ID, "Water", nil, 100); err != nil || !created {
		t.Fatalf("CreatePending after paid: created=%v err=%v", created, err)
	}
}

func TestOrderService_RecordPayerName(t *testing.T) {
	db := newSvcDB(t)
	users := NewUserService(db)
	orders := NewOrderService(db)
	ctx := context.Background()
	u := seedCustomer(t, users, "234", "Emeka")

	o, _, _ := orders.CreatePending(ctx, u.ID, "Assorted", nil, 0)
	if err := orders.RecordPayerName(ctx, o.ID, "Emeka Johnson"); err != nil {
		t.Fatalf("RecordPayerName: %v", err)
	}
	got, _ := orders.FindPending(ctx, u.ID)
	if got.PayerName != "Emeka Johnson" {
		t.Fatalf("payer name not stored: %+v", got)
	}
	if err := orders.RecordPayerName(ctx, 9999, "x"); !errors.Is(err, ErrNoPendingOrder) {
		t.Fatalf("want ErrNoPendingOrder for unknown order, got %v", err)
	}
}

func TestUserService_EnsureKeepsFirstName(t *testing.T) {
	db := newSvcDB(t)
	s := NewUserService(db)
	ctx := context.Background()

	a := seedCustomer(t, s, "234", "Emeka")
	b := seedCustomer(t, s, "234", "Somebody Else")
	if a.ID != b.ID || b.Name != "Emeka" {
		t.Fatalf("name must never be overwritten: %+v", b)
	}
	if b.ConversationState != domain.StateIdle {
		t.Fatalf("new users start idle, got %q", b.ConversationState)
	}

	if err := s.SetState(ctx, a.ID, domain.StateAwaitingPayerName); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	c := seedCustomer(t, s, "234", "")
	if c.ConversationState != domain.StateAwaitingPayerName {
		t.Fatalf("state not persisted: %q", c.ConversationState)
	}
}

func TestUserService_FindByNameFragment(t *testing.T) {
	db := newSvcDB(t)
	s := NewUserService(db)
	ctx := context.Background()

	seedCustomer(t, s, "1", "Emeka Johnson")
	seedCustomer(t, s, "2", "Emeka")
	seedCustomer(t, s, "3", "Adaeze")

	u, err := s.FindByNameFragment(ctx, "emeka")
	if err != nil || u.PhoneNumber != "2" {
		t.Fatalf("exact name must win: %+v err=%v", u, err)
	}
	u, err = s.FindByNameFragment(ctx, "ek")
	if err != nil || u.Name != "Emeka" {
		t.Fatalf("smallest name must win: %+v err=%v", u, err)
	}
	if _, err := s.FindByNameFragment(ctx, "zz"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
	if _, err := s.FindByNameFragment(ctx, "  "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("want ErrEmptyName, got %v", err)
	}
}
