// Package dedupe suppresses provider webhook retries.
//
// WhatsApp and Telegram redeliver an event until they get a 2xx in time, so
// the same message id can arrive more than once. A Store remembers the ids it
// has seen for a TTL. Blank ids are never deduplicated.
package dedupe

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/config"
)

// DefaultTTL is used when a store is built with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// Store answers whether a provider event was already processed.
type Store interface {
	// Seen records (platform, externalID) and reports whether it had been
	// recorded before within the TTL.
	Seen(ctx context.Context, platform, externalID string) (bool, error)
}

var duplicates = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vendorbot_webhook_duplicates_total",
		Help: "Webhook events dropped as provider retries.",
	},
	[]string{"platform"},
)

func init() {
	prometheus.MustRegister(duplicates)
}

// New returns a Redis store when cfg.RedisAddr is set, else a database store.
func New(cfg config.Config, db *gorm.DB) Store {
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.DedupeTTL)
	}
	return NewGormStore(db, cfg.DedupeTTL)
}

func blank(id string) bool { return strings.TrimSpace(id) == "" }

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
