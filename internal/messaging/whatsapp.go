package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/vendorbot/internal/config"
)

// WhatsAppSender posts text messages to the WhatsApp Cloud API:
//
//	POST {APIBase}/{PhoneID}/messages
//	Authorization: Bearer {Token}
type WhatsAppSender struct {
	apiBase    string
	token      string
	phoneID    string
	httpClient *http.Client
}

// NewWhatsAppSender builds a sender from cfg.
func NewWhatsAppSender(cfg config.WhatsAppConfig) *WhatsAppSender {
	return &WhatsAppSender{
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		token:      strings.TrimSpace(cfg.Token),
		phoneID:    strings.TrimSpace(cfg.PhoneID),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send implements Sender.
func (s *WhatsAppSender) Send(ctx context.Context, recipient, text string) error {
	if s.token == "" || s.phoneID == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(waSendRequest{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             "text",
		Text:             waText{Body: text},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", s.apiBase, s.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp waErrorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("whatsapp api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("whatsapp api error: %s", resp.Status)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type waText struct {
	Body string `json:"body"`
}

type waSendRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             waText `json:"text"`
}

type waErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}
