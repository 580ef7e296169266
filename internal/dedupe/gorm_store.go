package dedupe

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/repo"
)

// GormStore keeps receipts in the webhook_receipts table.
type GormStore struct {
	DB  *gorm.DB
	TTL time.Duration

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// NewGormStore returns a GormStore over db.
func NewGormStore(db *gorm.DB, ttl time.Duration) *GormStore {
	return &GormStore{DB: db, TTL: ttlOrDefault(ttl), Now: time.Now}
}

// Seen implements Store.
func (s *GormStore) Seen(ctx context.Context, platform, externalID string) (bool, error) {
	if blank(externalID) {
		return false, nil
	}
	now := s.now().UTC()
	// Provider retries usually hit a live receipt; answer them without a write.
	if _, err := repo.GetLiveReceipt(ctx, s.DB, platform, externalID, now); err == nil {
		duplicates.WithLabelValues(platform).Inc()
		return true, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return false, err
	}
	_, err := repo.CreateReceipt(ctx, s.DB, platform, externalID, ttlOrDefault(s.TTL), now)
	if errors.Is(err, repo.ErrDuplicate) {
		duplicates.WithLabelValues(platform).Inc()
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// Purge deletes expired receipts and returns how many were removed.
func (s *GormStore) Purge(ctx context.Context) (int64, error) {
	return repo.PurgeExpiredReceipts(ctx, s.DB, s.now().UTC())
}

func (s *GormStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
