package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/assistant"
	"github.com/tbourn/vendorbot/internal/config"
	"github.com/tbourn/vendorbot/internal/dedupe"
	"github.com/tbourn/vendorbot/internal/domain"
	httpapi "github.com/tbourn/vendorbot/internal/http"
	"github.com/tbourn/vendorbot/internal/http/handlers"
	"github.com/tbourn/vendorbot/internal/jobs"
	"github.com/tbourn/vendorbot/internal/messaging"
	"github.com/tbourn/vendorbot/internal/observability"
	"github.com/tbourn/vendorbot/internal/search"
	"github.com/tbourn/vendorbot/internal/services"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and maintenance jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, db, err := openStore()
	if err != nil {
		return err
	}
	defer closeDB(db)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, Version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	if cfg.MenuSeedPath != "" {
		if err := runSeedMenu(ctx, log.Logger, db, cfg.MenuSeedPath); err != nil {
			return err
		}
	}

	app, err := buildApp(cfg, db)
	if err != nil {
		return err
	}
	if c, ok := app.seen.(interface{ Close() error }); ok {
		defer c.Close()
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, app.handlers, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", Version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(sctx)
	})
	if app.purge != nil {
		log.Info().Time("next_run", app.purge.Next(time.Now())).Msg("receipt purge scheduled")
		g.Go(func() error { return app.purge.Run(gctx) })
	}
	return g.Wait()
}

// app is the wired object graph behind the HTTP layer.
type app struct {
	handlers *handlers.Handlers
	seen     dedupe.Store
	purge    *jobs.Scheduler
}

func buildApp(cfg config.Config, db *gorm.DB) (*app, error) {
	gen, err := assistant.NewGenerator(cfg.Assistant)
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}

	var notes search.Index
	if cfg.NotesPath != "" {
		if notes, err = search.Load(cfg.NotesPath, search.WithStopwords(search.DefaultStopwords...)); err != nil {
			return nil, fmt.Errorf("shop notes: %w", err)
		}
		log.Info().Str("path", cfg.NotesPath).Msg("shop notes loaded")
	}

	msgs := services.NewMessageService(db)
	out := messaging.NewDispatcher(msgs, cfg.DeliveryTimeout, senders(cfg))
	router := services.NewRouterService(
		msgs,
		services.NewUserService(db),
		services.NewOrderService(db),
		services.NewCatalogService(db),
		assistant.New(gen, cfg.Assistant.Timeout),
		out,
		services.RouterOptions{
			Owner:              cfg.Owner,
			PaymentAccount:     cfg.PaymentAccount,
			PayerNameHeuristic: cfg.PayerNameHeuristic,
			HistoryLimit:       cfg.Assistant.HistoryLimit,
			Notes:              notes,
		},
	)

	seen := dedupe.New(cfg, db)
	a := &app{
		seen: seen,
		handlers: handlers.New(router, msgs, seen, handlers.Options{
			WhatsAppVerifyToken: cfg.WhatsApp.VerifyToken,
			TelegramSecret:      cfg.Telegram.WebhookSecret,
			Version:             Version,
		}),
	}

	// Redis expires keys itself; only database receipts need purging.
	if gs, ok := seen.(*dedupe.GormStore); ok && cfg.ReceiptPurgeCron != "" {
		if a.purge, err = jobs.NewReceiptPurge(cfg.ReceiptPurgeCron, gs); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// senders registers only the configured platforms so the dispatcher reports
// the others as unconfigured.
func senders(cfg config.Config) map[string]messaging.Sender {
	m := map[string]messaging.Sender{}
	if cfg.WhatsApp.Token != "" && cfg.WhatsApp.PhoneID != "" {
		m[domain.PlatformWhatsApp] = messaging.NewWhatsAppSender(cfg.WhatsApp)
	} else {
		log.Warn().Msg("whatsapp sender not configured; replies are logged only")
	}
	if tg := messaging.NewTelegramSender(cfg.Telegram); tg != nil {
		m[domain.PlatformTelegram] = tg
	} else {
		log.Warn().Msg("telegram sender not configured; replies are logged only")
	}
	return m
}
