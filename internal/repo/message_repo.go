// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// Message log.
//
// Ordering is always (timestamp, id): timestamps are milliseconds and the
// auto-increment id breaks same-millisecond ties in insertion order.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/domain"
)

// CreateMessage inserts a new message row.
func CreateMessage(ctx context.Context, db *gorm.DB, platform, contactID, direction, body string, tsMillis int64) (*domain.Message, error) {
	m := &domain.Message{
		Platform:  platform,
		ContactID: contactID,
		Direction: direction,
		Body:      body,
		Timestamp: tsMillis,
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// ListHistory returns the most recent limit messages for a contact,
// oldest first. A limit <= 0 returns the whole history.
func ListHistory(ctx context.Context, db *gorm.DB, contactID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.WithContext(ctx).Where("contact_id = ?", contactID).Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

// ListRecent returns the most recent limit messages across all contacts,
// oldest first.
func ListRecent(ctx context.Context, db *gorm.DB, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.WithContext(ctx).Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

// LastPlatform returns the platform of the newest message for a contact,
// or ErrNotFound when the contact has no messages.
func LastPlatform(ctx context.Context, db *gorm.DB, contactID string) (string, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Select("platform").
		Where("contact_id = ?", contactID).
		Order("timestamp DESC, id DESC").
		First(&m).Error
	if err != nil {
		return "", err
	}
	return m.Platform, nil
}

// DeleteAllMessages removes every message and returns the number of rows deleted.
func DeleteAllMessages(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.Message{})
	return res.RowsAffected, res.Error
}

func reverse(ms []domain.Message) {
	for i, j := 0, len(ms)-1; i < j; i, j = i+1, j-1 {
		ms[i], ms[j] = ms[j], ms[i]
	}
}
