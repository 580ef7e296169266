package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Bucket bookkeeping defaults.
const (
	defaultIdleTTL   = 10 * time.Minute
	sweepEveryLookup = 1000
)

// KeyFunc maps a request to a bucket identity.
type KeyFunc func(*gin.Context) string

// KeyByIP keys buckets by client IP. The demo API has no authenticated
// identity, so the address is all there is.
func KeyByIP(c *gin.Context) string { return "ip:" + c.ClientIP() }

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local per-key token bucket limiter. Webhook routes
// must not sit behind it: providers retry on 429 and would amplify load.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
}

// NewRateLimiter builds a limiter. rps <= 0 disables limiting; burst <= 0 is
// treated as 1; a nil keyFn means KeyByIP.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByIP
	}
	lim := rate.Limit(rps)
	if rps <= 0 {
		lim = rate.Inf
	}
	return &RateLimiter{
		rps:     lim,
		burst:   burst,
		keyFn:   keyFn,
		ttl:     defaultIdleTTL,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// limiter returns the bucket for key. Idle buckets are swept every
// sweepEveryLookup calls, before the lookup, so a stale key starts fresh.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepEveryLookup {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.lim
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{lim: lim, lastSeen: now}
	return lim
}

// Len reports the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Handler rejects over-limit requests with 429, a Retry-After header and the
// error envelope (code "rate_limited").
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := rl.limiter(rl.keyFn(c))
		r := lim.ReserveN(rl.now(), 1)
		if !r.OK() {
			rl.reject(c, time.Second)
			return
		}
		if d := r.DelayFrom(rl.now()); d > 0 {
			r.CancelAt(rl.now())
			rl.reject(c, d)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) reject(c *gin.Context, wait time.Duration) {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	rid, _ := c.Get(requestIDKey)
	c.Header("Retry-After", strconv.Itoa(secs))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"request_id": asString(rid),
		"code":       "rate_limited",
		"message":    "rate limit exceeded",
	})
}
