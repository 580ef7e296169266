// Package services – OrderService
//
// This file implements OrderService, the order ledger. A user has at most one
// Pending order; it is created when the assistant reports a complete order
// and moves to Paid when the owner confirms payment. Orders are never
// cancelled or expired.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/domain"
	"github.com/tbourn/vendorbot/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OrderService manages order state transitions.
type OrderService struct {
	DB *gorm.DB

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// NewOrderService constructs an OrderService over db.
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{DB: db, Now: time.Now}
}

// FindPending returns the user's Pending order, or (nil, nil) when none exists.
func (s *OrderService) FindPending(ctx context.Context, userID uint) (*domain.Order, error) {
	o, err := repo.GetPendingOrder(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return o, err
}

// CreatePending creates a Pending order unless the user already has one, in
// which case the existing order is returned with created=false.
func (s *OrderService) CreatePending(ctx context.Context, userID uint, summary string, lines []domain.OrderLine, total float64) (*domain.Order, bool, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "CreatePending",
		trace.WithAttributes(
			attribute.Int64("user.id", int64(userID)),
			attribute.Float64("order.total", total),
		),
	)
	defer span.End()

	var raw datatypes.JSON
	if len(lines) > 0 {
		b, err := json.Marshal(lines)
		if err != nil {
			return nil, false, err
		}
		raw = datatypes.JSON(b)
	}
	o, created, err := repo.CreatePendingOrder(ctx, s.DB, userID, summary, raw, total)
	if err != nil {
		return nil, false, err
	}
	span.SetAttributes(attribute.Int64("order.id", int64(o.ID)), attribute.Bool("order.created", created))
	return o, created, nil
}

// MarkPaid moves a Pending order to Paid. It returns ErrNoPendingOrder when
// the order does not exist or is already Paid.
func (s *OrderService) MarkPaid(ctx context.Context, orderID uint) (*domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "MarkPaid", trace.WithAttributes(attribute.Int64("order.id", int64(orderID))))
	defer span.End()

	o, err := repo.MarkOrderPaid(ctx, s.DB, orderID, s.now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoPendingOrder
	}
	return o, err
}

// RecordPayerName stores the bank account name claimed for an order.
func (s *OrderService) RecordPayerName(ctx context.Context, orderID uint, name string) error {
	err := repo.SetOrderPayerName(ctx, s.DB, orderID, name)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNoPendingOrder
	}
	return err
}

// Lines decodes the structured lines of an order, if any.
func Lines(o *domain.Order) []domain.OrderLine {
	if o == nil || len(o.ItemLines) == 0 {
		return nil
	}
	var out []domain.OrderLine
	if err := json.Unmarshal(o.ItemLines, &out); err != nil {
		return nil
	}
	return out
}

func (s *OrderService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
