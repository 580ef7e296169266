package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/vendorbot/internal/domain"
	"github.com/tbourn/vendorbot/internal/http/middleware"
	"github.com/tbourn/vendorbot/internal/utils"
)

// Demo feed limits.
const (
	DefaultChatLimit = 50
	MaxChatLimit     = 200

	// AssistantSender is the "from" of outbound messages in the feed.
	AssistantSender = "BukkaAI"
)

// DemoMessage is one row of the dashboard feed.
type DemoMessage struct {
	ID        string `json:"id" example:"42"`
	Direction string `json:"direction" example:"inbound"`
	From      string `json:"from" example:"2348012345678"`
	Body      string `json:"body" example:"Hi"`
	Timestamp int64  `json:"timestamp" example:"1718000000000"`
	Platform  string `json:"platform" example:"whatsapp"`
}

func toDemoMessage(m domain.Message) DemoMessage {
	from := AssistantSender
	if m.Direction == domain.DirectionInbound {
		from = m.ContactID
	}
	return DemoMessage{
		ID:        strconv.FormatUint(uint64(m.ID), 10),
		Direction: m.Direction,
		From:      from,
		Body:      m.Body,
		Timestamp: m.Timestamp,
		Platform:  m.Platform,
	}
}

// DemoChats godoc
// @Summary      Recent messages across all contacts
// @Description  Oldest first. Supports a weak ETag via If-None-Match.
// @Tags         Demo
// @Produce      json
// @Param        limit          query   int     false  "Number of messages"  minimum(1) maximum(200) default(50)
// @Param        If-None-Match  header  string  false  "Return 304 if the ETag matches"
// @Success      200  {array}   handlers.DemoMessage
// @Header       200  {string}  ETag  "Weak ETag of the feed"
// @Success      304  {string}  string  "Not Modified"
// @Failure      500  {object}  handlers.ErrorResponse
// @Router       /demo/chats [get]
func (h *Handlers) DemoChats(c *gin.Context) {
	ctx := c.Request.Context()
	limit := utils.Clamp(utils.AtoiDefault(c.Query("limit"), DefaultChatLimit), 1, MaxChatLimit)

	// Best effort; the feed is still served when stats fail.
	if count, ts, id, err := h.msgs.Stats(ctx); err == nil {
		etag := fmt.Sprintf(`W/"messages:%d:%d:%d:%d"`, count, ts, id, limit)
		c.Header("ETag", etag)
		c.Header("Cache-Control", "no-cache")
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	msgs, err := h.msgs.Recent(ctx, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not load messages")
		return
	}
	out := make([]DemoMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toDemoMessage(m))
	}
	ok(c, out)
}

// DemoReset godoc
// @Summary  Clear the message log
// @Tags     Demo
// @Produce  json
// @Success  200  {object}  handlers.StatusResponse
// @Failure  500  {object}  handlers.ErrorResponse
// @Router   /demo/reset [post]
func (h *Handlers) DemoReset(c *gin.Context) {
	n, err := h.msgs.Clear(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeResetFailed, "could not clear messages")
		return
	}
	middleware.LoggerFrom(c).Info().Int64("removed", n).Msg("message log cleared")
	status(c, "cleared")
}
