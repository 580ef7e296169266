package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// lastLine decodes the final JSON log line in buf.
func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("decode log line %q: %v", lines[len(lines)-1], err)
	}
	return m
}

func newLoggedEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(RedactOptions{}), Recovery())
	return r
}

func TestRequestID_MintsAndPropagates(t *testing.T) {
	r := newLoggedEngine()
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a minted request id")
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("x-request-id", "rid-1")
	r.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "rid-1" {
		t.Fatalf("want propagated id, got %q", got)
	}
}

func TestLogger_LevelsByOutcome(t *testing.T) {
	buf := captureLogger(t)
	r := newLoggedEngine()
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "hi") })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusForbidden) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	r.GET("/err", func(c *gin.Context) {
		_ = c.Error(errors.New("store down"))
		c.Status(http.StatusOK)
	})

	for path, level := range map[string]string{
		"/ok":   "info",
		"/bad":  "warn",
		"/boom": "error",
		"/err":  "error",
	} {
		buf.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		m := lastLine(t, buf)
		if m["level"] != level {
			t.Errorf("%s: level %v, want %s", path, m["level"], level)
		}
		if m["path"] != path || m["message"] != "http_request" {
			t.Errorf("%s: unexpected line %v", path, m)
		}
	}
}

func TestLogger_RedactsSecretsAndPhones(t *testing.T) {
	buf := captureLogger(t)
	r := newLoggedEngine()
	r.GET("/webhooks/whatsapp", func(c *gin.Context) { c.String(http.StatusOK, "c") })

	req := httptest.NewRequest(http.MethodGet,
		"/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=s3cret&hub.challenge=42&from=2348012345678", nil)
	req.Header.Set("Authorization", "Bearer abc")
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "tg-secret")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, leak := range []string{"s3cret", "2348012345678", "Bearer abc", "tg-secret"} {
		if strings.Contains(out, leak) {
			t.Errorf("log leaked %q: %s", leak, out)
		}
	}
	if !strings.Contains(out, "hub.challenge=42") {
		t.Errorf("non-sensitive query lost: %s", out)
	}
}

func TestRecovery_ReturnsEnvelope(t *testing.T) {
	captureLogger(t)
	r := newLoggedEngine()
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] == "" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRecovery_AfterWriteOnlyAborts(t *testing.T) {
	captureLogger(t)
	r := newLoggedEngine()
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late")
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))
	if w.Body.String() != "partial" {
		t.Fatalf("body must not be rewritten, got %q", w.Body.String())
	}
}

func TestLoggerFrom_FallsBackToGlobal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if LoggerFrom(c) == nil {
		t.Fatalf("nil logger")
	}
	c.Set(loggerKey, "not a logger")
	if LoggerFrom(c) == nil {
		t.Fatalf("nil logger with bad value")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Fatalf("got %q", got)
	}
}
