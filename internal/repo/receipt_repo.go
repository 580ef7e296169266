// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for WebhookReceipt,
// which suppresses replays of provider webhooks.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/domain"
)

// GetLiveReceipt returns a non-expired receipt or ErrNotFound.
func GetLiveReceipt(ctx context.Context, db *gorm.DB, platform, externalID string, now time.Time) (*domain.WebhookReceipt, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, ErrNotFound
	}
	var rec domain.WebhookReceipt
	err := db.WithContext(ctx).
		Where("platform = ? AND external_id = ? AND expires_at > ?", platform, externalID, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateReceipt records (platform, externalID) until now+ttl. An expired
// receipt for the same key is replaced. A live one yields ErrDuplicate.
func CreateReceipt(ctx context.Context, db *gorm.DB, platform, externalID string, ttl time.Duration, now time.Time) (*domain.WebhookReceipt, error) {
	rec := &domain.WebhookReceipt{
		Platform:   platform,
		ExternalID: externalID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if derr := tx.
			Where("platform = ? AND external_id = ? AND expires_at <= ?", platform, externalID, now).
			Delete(&domain.WebhookReceipt{}).Error; derr != nil {
			return derr
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredReceipts deletes receipts whose expiry is at or before now.
func PurgeExpiredReceipts(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.WebhookReceipt{})
	return res.RowsAffected, res.Error
}
