package messaging

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/vendorbot/internal/config"
)

// TelegramSender sends messages through the Telegram Bot API.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramSender builds a sender from cfg. The bot is constructed without
// the getMe handshake so startup never depends on Telegram being reachable.
// It returns nil when no token is configured.
func NewTelegramSender(cfg config.TelegramConfig) *TelegramSender {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil
	}
	bot := &tgbotapi.BotAPI{
		Token:  token,
		Client: &http.Client{Timeout: 10 * time.Second},
		Buffer: 100,
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot.SetAPIEndpoint(endpoint)
	return &TelegramSender{bot: bot}
}

// Send implements Sender. recipient is the numeric chat id.
//
// The Bot API client is not context-aware, so the call runs in a goroutine
// and Send returns early when ctx is done; the HTTP client timeout bounds the
// abandoned request.
func (s *TelegramSender) Send(ctx context.Context, recipient, text string) error {
	if s == nil || s.bot == nil {
		return ErrNotConfigured
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(recipient), 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", recipient, err)
	}
	msg := tgbotapi.NewMessage(chatID, text)

	done := make(chan error, 1)
	go func() {
		_, err := s.bot.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
