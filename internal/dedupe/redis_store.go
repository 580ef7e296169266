package dedupe

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "vendorbot:webhook:"

// RedisStore keeps receipts as Redis keys that expire after the TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(addr, password string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttlOrDefault(ttl),
	}
}

// Seen implements Store with SET NX PX.
func (s *RedisStore) Seen(ctx context.Context, platform, externalID string) (bool, error) {
	if blank(externalID) {
		return false, nil
	}
	fresh, err := s.client.SetNX(ctx, receiptKey(platform, externalID), "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	if !fresh {
		duplicates.WithLabelValues(platform).Inc()
	}
	return !fresh, nil
}

// Close releases the client connections.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func receiptKey(platform, externalID string) string {
	return redisKeyPrefix + platform + ":" + externalID
}
