// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Order model.
//
// At most one Pending order may exist per user. CreatePendingOrder performs a
// transactional check-and-insert and the partial unique index
// ux_orders_user_pending rejects any insert that races past the check.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/domain"
)

// GetOrder fetches an order by id, or ErrNotFound.
func GetOrder(ctx context.Context, db *gorm.DB, id uint) (*domain.Order, error) {
	var o domain.Order
	if err := db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// GetPendingOrder returns the user's Pending order, or ErrNotFound.
func GetPendingOrder(ctx context.Context, db *gorm.DB, userID uint) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.OrderPending).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreatePendingOrder inserts a Pending order for userID unless one already
// exists. When a Pending order exists, it is returned with created=false.
func CreatePendingOrder(ctx context.Context, db *gorm.DB, userID uint, items string, lines datatypes.JSON, total float64) (order *domain.Order, created bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, gerr := GetPendingOrder(ctx, tx, userID)
		if gerr == nil {
			order = existing
			return nil
		}
		if !errors.Is(gerr, ErrNotFound) {
			return gerr
		}
		o := &domain.Order{
			UserID:     userID,
			Items:      items,
			ItemLines:  lines,
			TotalPrice: total,
			Status:     domain.OrderPending,
		}
		if cerr := tx.Create(o).Error; cerr != nil {
			return cerr
		}
		order, created = o, true
		return nil
	})
	if err != nil && isUniqueViolation(err) {
		// Lost a race with a concurrent insert; return the winner.
		order, err = GetPendingOrder(ctx, db, userID)
		return order, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return order, created, nil
}

// MarkOrderPaid transitions a Pending order to Paid and stamps paid_at.
// It returns ErrNotFound when no Pending order with that id exists.
func MarkOrderPaid(ctx context.Context, db *gorm.DB, orderID uint, at time.Time) (*domain.Order, error) {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", orderID, domain.OrderPending).
		Updates(map[string]any{"status": domain.OrderPaid, "paid_at": at})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetOrder(ctx, db, orderID)
}

// SetOrderPayerName stores the bank account name the customer claims to
// have paid from.
func SetOrderPayerName(ctx context.Context, db *gorm.DB, orderID uint, name string) error {
	res := db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", orderID).Update("payer_name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
