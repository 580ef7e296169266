package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions controls SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests only.
	EnableHSTS bool
	// HSTSMaxAge defaults to 180 days.
	HSTSMaxAge time.Duration
	// NoStore marks responses uncacheable. The demo chat feed sets its own
	// Cache-Control for ETag revalidation, so the router leaves this off there.
	NoStore bool
}

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityHeaders sets baseline hardening headers on every response and
// exposes X-Request-ID and ETag to browser clients of the demo dashboard.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		exposeHeaders(h, requestIDHeader, "ETag")

		c.Next()
	}
}

// exposeHeaders appends names to Access-Control-Expose-Headers without
// duplicating entries already present.
func exposeHeaders(h http.Header, names ...string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	for _, n := range names {
		if containsToken(cur, n) {
			continue
		}
		if cur == "" {
			cur = n
		} else {
			cur += ", " + n
		}
	}
	if cur != "" {
		h.Set(key, cur)
	}
}

func containsToken(list, name string) bool {
	for _, p := range strings.Split(list, ",") {
		if strings.EqualFold(strings.TrimSpace(p), name) {
			return true
		}
	}
	return false
}

// isHTTPS honours X-Forwarded-Proto from the fronting proxy.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
