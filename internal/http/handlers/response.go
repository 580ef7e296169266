// Package handlers implements the HTTP endpoints: provider webhooks for
// WhatsApp and Telegram, and the demo API that backs the chat dashboard.
//
// Webhook handlers always answer 2xx once a request is authentic, because
// both providers retry anything else. Demo endpoints use the ErrorResponse
// envelope for failures.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/vendorbot/internal/http/middleware"
)

// ErrorResponse is the error envelope of the demo API.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"list_failed"`
	Message   string `json:"message" example:"could not load messages"`
}

// StatusResponse is the acknowledgement body of webhook and reset endpoints.
type StatusResponse struct {
	Status string `json:"status" example:"received"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged with the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is fail for callers outside the package, such as router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

func status(c *gin.Context, s string) {
	ok(c, StatusResponse{Status: s})
}
