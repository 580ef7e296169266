// Package httpapi wires the Gin engine: cross-cutting middleware, provider
// webhooks, the demo API, health, metrics and optional Swagger UI.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/vendorbot/internal/config"
	_ "github.com/tbourn/vendorbot/internal/docs" // registers the Swagger spec
	"github.com/tbourn/vendorbot/internal/http/handlers"
	"github.com/tbourn/vendorbot/internal/http/middleware"
)

// maxBodyBytes caps request bodies. Provider payloads are a few KiB.
const maxBodyBytes = 1 << 20

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. Logger (redacting)
//  4. Recovery
//  5. Body size limit
//  6. Metrics
//  7. Security headers
//
// Webhooks are never rate limited. The demo group adds CORS, gzip and the
// per-IP rate limiter. When CORS origins are configured, POST /webhook also
// answers browser preflights so the dashboard simulator can post to it;
// provider calls carry no Origin and pass through untouched.
func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.RedactOptions{
		MaskQuery: []string{"access_token"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/", h.Root)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Provider webhooks
	r.GET("/webhook", h.VerifyWhatsApp)
	if len(cfg.CORS.AllowedOrigins) > 0 {
		wc := corsFor(cfg.CORS)
		r.POST("/webhook", wc, h.WhatsAppWebhook)
		r.OPTIONS("/webhook", wc, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	} else {
		r.POST("/webhook", h.WhatsAppWebhook)
	}
	r.POST("/telegram/webhook", h.TelegramWebhook)

	// Demo dashboard API
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP)
	demo := groupWithPrefix(r, cfg.APIBasePath).Group("/demo")
	demo.Use(corsFor(cfg.CORS), gzip.Gzip(gzip.DefaultCompression), rl.Handler())
	{
		demo.GET("/chats", h.DemoChats)
		demo.POST("/reset", h.DemoReset)
		// Preflights must reach the CORS middleware instead of NoMethod.
		demo.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
}

// corsFor allows every origin when none are configured.
func corsFor(c config.CORSConfig) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "If-None-Match"},
		ExposeHeaders: []string{"X-Request-ID", "ETag"},
		MaxAge:        12 * time.Hour,
	}
	if len(c.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowedOrigins
	}
	return cors.New(cc)
}

// limitBody wraps the body in http.MaxBytesReader; oversized reads fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
