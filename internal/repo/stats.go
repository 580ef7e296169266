// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/domain"
)

// MessagesStats returns aggregate metadata for the message log: the total
// number of rows and the newest (timestamp, id) pair.
//
// When the log is empty, the returned count is 0 and newestTS/newestID are 0.
//
// Return values:
//   - count:    total messages
//   - newestTS: greatest timestamp in milliseconds
//   - newestID: id of the newest message (tie-breaker)
//   - err:      database error, if any
func MessagesStats(ctx context.Context, db *gorm.DB) (count, newestTS int64, newestID uint, err error) {
	q := db.WithContext(ctx).Model(&domain.Message{})

	if err = q.Count(&count).Error; err != nil {
		return 0, 0, 0, err
	}
	if count == 0 {
		return 0, 0, 0, nil
	}

	var row struct {
		ID        uint
		Timestamp int64
	}
	if err = db.WithContext(ctx).Model(&domain.Message{}).
		Select("id, timestamp").
		Order("timestamp DESC, id DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, 0, 0, err
	}
	return count, row.Timestamp, row.ID, nil
}
