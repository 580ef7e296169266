package handlers

import (
	"context"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/vendorbot/internal/dedupe"
	"github.com/tbourn/vendorbot/internal/domain"
	"github.com/tbourn/vendorbot/internal/http/middleware"
	"github.com/tbourn/vendorbot/internal/services"
)

// Router handles one normalized inbound message.
type Router interface {
	Handle(ctx context.Context, in services.Inbound) error
}

// MessageLog is the part of the message store the demo API reads.
type MessageLog interface {
	Recent(ctx context.Context, limit int) ([]domain.Message, error)
	Clear(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (count, newestTS int64, newestID uint, err error)
}

// Options carries webhook secrets and the build version.
type Options struct {
	// WhatsAppVerifyToken must match hub.verify_token on subscription.
	WhatsAppVerifyToken string
	// TelegramSecret, when set, must match X-Telegram-Bot-Api-Secret-Token.
	TelegramSecret string
	Version        string
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	router Router
	msgs   MessageLog
	seen   dedupe.Store
	opts   Options
}

// New builds Handlers. seen may be nil to disable retry suppression.
func New(router Router, msgs MessageLog, seen dedupe.Store, opts Options) *Handlers {
	return &Handlers{router: router, msgs: msgs, seen: seen, opts: opts}
}

// process runs one conversational turn. The turn is detached from client
// cancellation: a provider that hangs up must not abort a half-written turn.
// Failures are logged and never surface to the provider.
func (h *Handlers) process(c *gin.Context, in services.Inbound) {
	lg := middleware.LoggerFrom(c).With().
		Str("platform", in.Platform).
		Str("external_id", in.ExternalID).
		Logger()
	ctx := lg.WithContext(context.WithoutCancel(c.Request.Context()))

	defer func() {
		if rec := recover(); rec != nil {
			lg.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("webhook turn panicked")
		}
	}()

	if h.seen != nil {
		dup, err := h.seen.Seen(ctx, in.Platform, in.ExternalID)
		switch {
		case err != nil:
			// Fail open: a double reply beats a lost order.
			lg.Warn().Err(err).Msg("dedupe lookup failed")
		case dup:
			lg.Info().Msg("duplicate webhook dropped")
			return
		}
	}

	if err := h.router.Handle(ctx, in); err != nil {
		lg.Error().Err(err).Msg("webhook turn failed")
	}
}

// Root godoc
// @Summary  Service banner
// @Tags     Status
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   / [get]
func (h *Handlers) Root(c *gin.Context) {
	ok(c, gin.H{"status": "Bukka AI System Online 🚀", "version": h.opts.Version})
}
