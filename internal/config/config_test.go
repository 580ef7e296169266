package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_AllFieldsFromEnv(t *testing.T) {
	// Server
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // -> release

	// Logging / Docs
	t.Setenv("LOG_LEVEL", "WARNING") // -> warn
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v1/")

	// Storage
	t.Setenv("DB_PATH", "db.sqlite")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/vendor")
	t.Setenv("MENU_SEED_PATH", "menu.yaml")
	t.Setenv("SHOP_NOTES_PATH", "notes.md")

	// Rate limiting
	t.Setenv("RATE_RPS", "oops")  // -> default 5
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// Dedupe
	t.Setenv("DEDUPE_TTL", "48h")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("RECEIPT_PURGE_CRON", "@hourly")

	// Conversation
	t.Setenv("OWNER_PLATFORM", "WhatsApp")
	t.Setenv("OWNER_ID", "2348000000000")
	t.Setenv("OWNER_PHONE", "2348000000000")
	t.Setenv("PAYMENT_ACCOUNT", "Kuda: 999")
	t.Setenv("PAYER_NAME_HEURISTIC", "1")
	t.Setenv("DELIVERY_TIMEOUT", "500ms")

	// Providers
	t.Setenv("WHATSAPP_API_BASE", "https://graph.example/v19.0/")
	t.Setenv("META_API_TOKEN", "meta")
	t.Setenv("WHATSAPP_PHONE_ID", "pid")
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "verify")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "s3cret")
	t.Setenv("ASSISTANT_PROVIDER", "groq") // -> openai
	t.Setenv("GROQ_API_KEY", "gk")
	t.Setenv("ASSISTANT_MODEL", "m")
	t.Setenv("ASSISTANT_TIMEOUT", "3s")
	t.Setenv("ASSISTANT_HISTORY_LIMIT", "6")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DBPath != "db.sqlite" || cfg.DatabaseURL != "postgres://u:p@localhost/vendor" || cfg.MenuSeedPath != "menu.yaml" || cfg.NotesPath != "notes.md" {
		t.Fatalf("storage fields unexpected: %+v", cfg)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}
	if cfg.DedupeTTL != 48*time.Hour || cfg.RedisAddr != "redis:6379" || cfg.ReceiptPurgeCron != "@hourly" {
		t.Fatalf("dedupe unexpected: %+v", cfg)
	}
	if cfg.Owner.Platform != "whatsapp" || cfg.Owner.ID != "2348000000000" || cfg.Owner.Phone != "2348000000000" {
		t.Fatalf("owner unexpected: %+v", cfg.Owner)
	}
	if cfg.PaymentAccount != "Kuda: 999" || !cfg.PayerNameHeuristic || cfg.DeliveryTimeout != 500*time.Millisecond {
		t.Fatalf("conversation unexpected: %+v", cfg)
	}
	if cfg.WhatsApp.APIBase != "https://graph.example/v19.0" || cfg.WhatsApp.Token != "meta" ||
		cfg.WhatsApp.PhoneID != "pid" || cfg.WhatsApp.VerifyToken != "verify" {
		t.Fatalf("whatsapp unexpected: %+v", cfg.WhatsApp)
	}
	if cfg.Telegram.Token != "tg" || cfg.Telegram.WebhookSecret != "s3cret" || !strings.Contains(cfg.Telegram.APIEndpoint, "bot%s") {
		t.Fatalf("telegram unexpected: %+v", cfg.Telegram)
	}
	if cfg.Assistant.Provider != "openai" || cfg.Assistant.APIKey != "gk" || cfg.Assistant.Model != "m" ||
		cfg.Assistant.Timeout != 3*time.Second || cfg.Assistant.HistoryLimit != 6 {
		t.Fatalf("assistant unexpected: %+v", cfg.Assistant)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"invalid LOG_LEVEL", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"empty PORT via spaces", "PORT", "   ", "PORT must not be empty"},
		{"non-positive timeouts", "READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"max header bytes <= 0", "MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"rate rps negative", "RATE_RPS", "-1", "RATE_RPS"},
		{"rate burst < 1", "RATE_BURST", "0", "RATE_BURST"},
		{"hsts max age negative", "HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"dedupe ttl non-positive", "DEDUPE_TTL", "0s", "DEDUPE_TTL"},
		{"unknown owner platform", "OWNER_PLATFORM", "signal", "OWNER_PLATFORM"},
		{"delivery timeout non-positive", "DELIVERY_TIMEOUT", "0s", "DELIVERY_TIMEOUT"},
		{"unknown assistant provider", "ASSISTANT_PROVIDER", "bard", "ASSISTANT_PROVIDER"},
		{"history limit < 1", "ASSISTANT_HISTORY_LIMIT", "0", "ASSISTANT_HISTORY_LIMIT"},
		{"otel sample ratio out of range", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}

	t.Run("no storage configured", func(t *testing.T) {
		t.Setenv("DB_PATH", "   ")
		t.Setenv("DATABASE_URL", "")
		if _, err := Load(); err == nil || !containsErr(err, "DB_PATH or DATABASE_URL") {
			t.Fatalf("expected storage validation error, got: %v", err)
		}
	})
}

func TestLoad_AssistantKeyPrefersExplicit(t *testing.T) {
	t.Setenv("ASSISTANT_API_KEY", "explicit")
	t.Setenv("GROQ_API_KEY", "fallback")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Assistant.APIKey != "explicit" {
		t.Fatalf("APIKey = %q; want explicit", cfg.Assistant.APIKey)
	}
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for i, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		k := "B_T_" + string(rune('a'+i))
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for i, v := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
		k := "B_F_" + string(rune('a'+i))
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	want := []string{"a", "b", "c"}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}

	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
}

func TestHelpers_firstSet(t *testing.T) {
	t.Setenv("FS_A", " ")
	t.Setenv("FS_B", "b")
	if got := firstSet("FS_A", "FS_B"); got != "b" {
		t.Fatalf("firstSet = %q; want b", got)
	}
	if got := firstSet("FS_NOPE_1", "FS_NOPE_2"); got != "" {
		t.Fatalf("firstSet = %q; want empty", got)
	}
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("API_BASE_PATH default expected '/api/v1', got %q", cfg.APIBasePath)
	}
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// Ensure tests don't leak env to others.
func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "DATABASE_URL", "ASSISTANT_API_KEY", "GROQ_API_KEY"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
