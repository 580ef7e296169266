// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// HTTP server, logging, storage, messaging providers, the assistant backend,
// the owner identity, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "vendorbot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// OwnerConfig identifies the single privileged vendor account.
//
// The owner is matched either by (Platform, ID) or, on WhatsApp, by Phone.
// Payment alerts are delivered to (Platform, ID), falling back to the
// WhatsApp phone when ID is empty.
type OwnerConfig struct {
	Platform string // OWNER_PLATFORM: whatsapp|telegram
	ID       string // OWNER_ID: chat id / phone on Platform
	Phone    string // OWNER_PHONE: WhatsApp phone number
}

// WhatsAppConfig holds WhatsApp Cloud API credentials.
type WhatsAppConfig struct {
	APIBase     string // WHATSAPP_API_BASE
	Token       string // META_API_TOKEN
	PhoneID     string // WHATSAPP_PHONE_ID
	VerifyToken string // WHATSAPP_VERIFY_TOKEN
}

// TelegramConfig holds Telegram Bot API settings.
type TelegramConfig struct {
	Token         string // TELEGRAM_BOT_TOKEN
	APIEndpoint   string // TELEGRAM_API_ENDPOINT, printf format "…/bot%s/%s"
	WebhookSecret string // TELEGRAM_WEBHOOK_SECRET
}

// AssistantConfig selects and tunes the language-model backend.
type AssistantConfig struct {
	Provider     string        // ASSISTANT_PROVIDER: openai|gemini
	BaseURL      string        // ASSISTANT_BASE_URL (OpenAI-compatible, includes /v1)
	APIKey       string        // ASSISTANT_API_KEY (falls back to GROQ_API_KEY)
	Model        string        // ASSISTANT_MODEL
	Timeout      time.Duration // ASSISTANT_TIMEOUT
	HistoryLimit int           // ASSISTANT_HISTORY_LIMIT
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 30s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for demo/admin API routes

	// Storage
	DBPath       string // SQLite path (used when DatabaseURL is empty)
	DatabaseURL  string // postgres:// DSN
	MenuSeedPath string // optional YAML menu seed
	NotesPath    string // optional Markdown shop notes (hours, delivery, FAQ)

	// Rate limiting (demo API only; webhooks are never throttled)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Webhook dedupe
	DedupeTTL        time.Duration // how long a provider message id is remembered
	RedisAddr        string        // optional Redis backend for dedupe
	RedisPassword    string
	ReceiptPurgeCron string // cron spec for purging expired receipts

	// Conversation
	Owner              OwnerConfig
	PaymentAccount     string        // PAYMENT_ACCOUNT, e.g. "Opay: 123456"
	PayerNameHeuristic bool          // capture any short message as payer name while an order is pending
	DeliveryTimeout    time.Duration // per outbound delivery attempt

	// Providers
	WhatsApp  WhatsAppConfig
	Telegram  TelegramConfig
	Assistant AssistantConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath:       getenv("DB_PATH", "local_test.db"),
		DatabaseURL:  getenv("DATABASE_URL", ""),
		MenuSeedPath: getenv("MENU_SEED_PATH", ""),
		NotesPath:    getenv("SHOP_NOTES_PATH", ""),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Webhook dedupe
		DedupeTTL:        getdur("DEDUPE_TTL", 24*time.Hour),
		RedisAddr:        getenv("REDIS_ADDR", ""),
		RedisPassword:    getenv("REDIS_PASSWORD", ""),
		ReceiptPurgeCron: getenv("RECEIPT_PURGE_CRON", "*/30 * * * *"),

		// Conversation
		Owner: OwnerConfig{
			Platform: strings.ToLower(getenv("OWNER_PLATFORM", "telegram")),
			ID:       getenv("OWNER_ID", ""),
			Phone:    getenv("OWNER_PHONE", ""),
		},
		PaymentAccount:     getenv("PAYMENT_ACCOUNT", "Opay: 123456"),
		PayerNameHeuristic: getbool("PAYER_NAME_HEURISTIC", false),
		DeliveryTimeout:    getdur("DELIVERY_TIMEOUT", 2*time.Second),

		// Providers
		WhatsApp: WhatsAppConfig{
			APIBase:     strings.TrimRight(getenv("WHATSAPP_API_BASE", "https://graph.facebook.com/v18.0"), "/"),
			Token:       getenv("META_API_TOKEN", ""),
			PhoneID:     getenv("WHATSAPP_PHONE_ID", ""),
			VerifyToken: getenv("WHATSAPP_VERIFY_TOKEN", ""),
		},
		Telegram: TelegramConfig{
			Token:         getenv("TELEGRAM_BOT_TOKEN", ""),
			APIEndpoint:   getenv("TELEGRAM_API_ENDPOINT", "https://api.telegram.org/bot%s/%s"),
			WebhookSecret: getenv("TELEGRAM_WEBHOOK_SECRET", ""),
		},
		Assistant: AssistantConfig{
			Provider:     strings.ToLower(getenv("ASSISTANT_PROVIDER", "openai")),
			BaseURL:      getenv("ASSISTANT_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:       firstSet("ASSISTANT_API_KEY", "GROQ_API_KEY"),
			Model:        getenv("ASSISTANT_MODEL", "llama-3.1-8b-instant"),
			Timeout:      getdur("ASSISTANT_TIMEOUT", 15*time.Second),
			HistoryLimit: getint("ASSISTANT_HISTORY_LIMIT", 10),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "vendorbot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Assistant.Provider == "groq" {
		cfg.Assistant.Provider = "openai"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" && strings.TrimSpace(cfg.DatabaseURL) == "" {
		return cfg, errors.New("one of DB_PATH or DATABASE_URL must be set")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.DedupeTTL <= 0 {
		return cfg, errors.New("DEDUPE_TTL must be > 0")
	}
	switch cfg.Owner.Platform {
	case "whatsapp", "telegram":
	default:
		return cfg, errors.New("OWNER_PLATFORM must be one of: whatsapp, telegram")
	}
	if cfg.DeliveryTimeout <= 0 || cfg.Assistant.Timeout <= 0 {
		return cfg, errors.New("DELIVERY_TIMEOUT and ASSISTANT_TIMEOUT must be positive durations")
	}
	switch cfg.Assistant.Provider {
	case "openai", "gemini":
	default:
		return cfg, errors.New("ASSISTANT_PROVIDER must be one of: openai, gemini")
	}
	if cfg.Assistant.HistoryLimit < 1 {
		return cfg, errors.New("ASSISTANT_HISTORY_LIMIT must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

// firstSet returns the first non-empty value among the given variables.
func firstSet(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
