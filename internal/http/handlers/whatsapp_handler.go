package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/vendorbot/internal/domain"
	"github.com/tbourn/vendorbot/internal/http/middleware"
	"github.com/tbourn/vendorbot/internal/services"
)

// MediaPlaceholder replaces the body of non-text WhatsApp messages.
const MediaPlaceholder = "[Media/Image Received]"

// WhatsAppWebhookRequest is the subset of a Cloud API notification the
// service reads.
type WhatsAppWebhookRequest struct {
	Object string          `json:"object" example:"whatsapp_business_account"`
	Entry  []WhatsAppEntry `json:"entry"`
}

// WhatsAppEntry is one entry of a notification.
type WhatsAppEntry struct {
	ID      string           `json:"id"`
	Changes []WhatsAppChange `json:"changes"`
}

// WhatsAppChange is one change of an entry.
type WhatsAppChange struct {
	Field string        `json:"field" example:"messages"`
	Value WhatsAppValue `json:"value"`
}

// WhatsAppValue holds the contacts and messages of a change.
type WhatsAppValue struct {
	Contacts []WhatsAppContact `json:"contacts"`
	Messages []WhatsAppMessage `json:"messages"`
}

// WhatsAppContact carries the sender profile.
type WhatsAppContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name" example:"Emeka"`
	} `json:"profile"`
}

// WhatsAppMessage is one inbound message.
type WhatsAppMessage struct {
	From      string `json:"from" example:"2348012345678"`
	ID        string `json:"id" example:"wamid.HBgN"`
	Timestamp string `json:"timestamp" example:"1718000000"`
	Type      string `json:"type" example:"text"`
	Text      *struct {
		Body string `json:"body" example:"Hi"`
	} `json:"text,omitempty"`
}

// VerifyWhatsApp godoc
// @Summary  WhatsApp webhook verification
// @Tags     Webhooks
// @Produce  plain
// @Param    hub.mode          query  string  true  "subscribe"
// @Param    hub.verify_token  query  string  true  "Shared verify token"
// @Param    hub.challenge     query  string  true  "Challenge to echo"
// @Success  200  {string}  string  "challenge"
// @Failure  403  {string}  string  "Verification failed"
// @Router   /webhook [get]
func (h *Handlers) VerifyWhatsApp(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	want := h.opts.WhatsAppVerifyToken

	if mode == "subscribe" && want != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1 {
		c.String(http.StatusOK, c.Query("hub.challenge"))
		return
	}
	c.String(http.StatusForbidden, "Verification failed")
}

// WhatsAppWebhook godoc
// @Summary      Receive WhatsApp messages
// @Description  Processes the first message of the first change. Always answers 200 so the provider does not retry.
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Param        body  body      handlers.WhatsAppWebhookRequest  true  "Cloud API notification"
// @Success      200   {object}  handlers.StatusResponse
// @Router       /webhook [post]
func (h *Handlers) WhatsAppWebhook(c *gin.Context) {
	var req WhatsAppWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("malformed whatsapp payload")
		status(c, "received")
		return
	}

	if len(req.Entry) == 0 || len(req.Entry[0].Changes) == 0 {
		status(c, "ignored")
		return
	}
	val := req.Entry[0].Changes[0].Value
	// Status callbacks (delivered, read) carry no messages.
	if len(val.Messages) == 0 {
		status(c, "ignored")
		return
	}

	msg := val.Messages[0]
	name := services.DefaultDisplayName(domain.PlatformWhatsApp)
	if len(val.Contacts) > 0 && val.Contacts[0].Profile.Name != "" {
		name = val.Contacts[0].Profile.Name
	}
	text := MediaPlaceholder
	if msg.Type == "text" && msg.Text != nil {
		text = msg.Text.Body
	}

	h.process(c, services.Inbound{
		Platform:    domain.PlatformWhatsApp,
		ContactID:   msg.From,
		DisplayName: name,
		Text:        text,
		ExternalID:  msg.ID,
	})
	status(c, "received")
}
