// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the request ID injector, the access logger, and the
// panic recovery handler:
//
//   - RequestID() reuses or mints the X-Request-ID correlation id.
//   - Logger() attaches a request-scoped zerolog.Logger to the Gin context and
//     writes one access log line per request with PII scrubbed by a Redactor.
//   - Recovery() turns panics into the JSON 500 envelope.
//   - LoggerFrom() returns the request-scoped logger for handlers.
//
// Recommended order: RequestID, Logger, Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	loggerKey       = "logger"
	requestIDHeader = "X-Request-ID"

	// maxQueryLogLength caps the logged raw query in bytes.
	maxQueryLogLength = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger stores a request-scoped logger under the "logger" key and emits an
// access log when the request completes. Query strings and header values go
// through a Redactor built from opts; bodies are never logged.
//
// Level by outcome: error for 5xx or collected gin errors, warn for 4xx,
// info otherwise.
func Logger(opts RedactOptions) gin.HandlerFunc {
	red := NewRedactor(opts)
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", route).
			Logger()
		c.Set(loggerKey, &l)

		query := red.Query(truncate(c.Request.URL.RawQuery, maxQueryLogLength))
		headers := red.Headers(c.Request.Header)

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case len(c.Errors) > 0:
			ev = l.Error().Str("errors", c.Errors.String())
		case status >= http.StatusInternalServerError:
			ev = l.Error()
		case status >= http.StatusBadRequest:
			ev = l.Warn()
		default:
			ev = l.Info()
		}
		ev.
			Str("query", query).
			Str("remote_ip", red.String(c.ClientIP())).
			Str("user_agent", c.Request.UserAgent()).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}

// Recovery intercepts panics, logs the stack with the request id, and returns
// {"request_id","code":"internal_error","message"} with status 500 when
// nothing has been written yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header(requestIDHeader, asString(rid))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": asString(rid),
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or a copy of the global
// logger when Logger() did not run.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate cuts s to max bytes and appends an ellipsis; max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
