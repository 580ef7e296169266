package handlers

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/vendorbot/internal/domain"
	"github.com/tbourn/vendorbot/internal/http/middleware"
	"github.com/tbourn/vendorbot/internal/services"
)

// TelegramSecretHeader carries the secret_token registered with setWebhook.
const TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramWebhook godoc
// @Summary      Receive Telegram updates
// @Description  Processes message updates. Other update kinds are acknowledged and skipped.
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Param        X-Telegram-Bot-Api-Secret-Token  header  string  false  "Webhook secret, required when configured"
// @Success      200  {object}  handlers.StatusResponse
// @Failure      403  {object}  handlers.ErrorResponse
// @Router       /telegram/webhook [post]
func (h *Handlers) TelegramWebhook(c *gin.Context) {
	if secret := h.opts.TelegramSecret; secret != "" {
		got := c.GetHeader(TelegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "invalid webhook secret")
			return
		}
	}

	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("malformed telegram update")
		status(c, "ok")
		return
	}

	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		status(c, "ok")
		return
	}

	name := services.DefaultDisplayName(domain.PlatformTelegram)
	if msg.From != nil && msg.From.FirstName != "" {
		name = msg.From.FirstName
	}

	h.process(c, services.Inbound{
		Platform:    domain.PlatformTelegram,
		ContactID:   strconv.FormatInt(msg.Chat.ID, 10),
		DisplayName: name,
		Text:        msg.Text,
		ExternalID:  strconv.Itoa(upd.UpdateID),
	})
	status(c, "ok")
}
