// Package services – MessageService
//
// This file implements MessageService, the append-only conversation log.
// Every inbound and outbound message is written here before anything else
// happens, and the assistant reads its history window from here.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include the contact identifier and limits where applicable.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/domain"
	"github.com/tbourn/vendorbot/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessageService persists and reads the message log.
type MessageService struct {
	DB *gorm.DB

	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// NewMessageService constructs a MessageService over db.
func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{DB: db, Now: time.Now}
}

// Append records one message stamped with the current time in milliseconds.
// The row is durable when Append returns.
func (s *MessageService) Append(ctx context.Context, platform, contactID, direction, body string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Append",
		trace.WithAttributes(
			attribute.String("contact.id", contactID),
			attribute.String("platform", platform),
			attribute.String("direction", direction),
		),
	)
	defer span.End()

	return repo.CreateMessage(ctx, s.DB, platform, contactID, direction, body, s.now().UnixMilli())
}

// History returns the most recent limit messages of a contact, oldest first.
func (s *MessageService) History(ctx context.Context, contactID string, limit int) ([]domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("contact.id", contactID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	return repo.ListHistory(ctx, s.DB, contactID, limit)
}

// Recent returns the most recent limit messages across all contacts, oldest first.
func (s *MessageService) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Recent", trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	return repo.ListRecent(ctx, s.DB, limit)
}

// LastPlatform returns the platform of the contact's newest message.
// Contacts without messages default to WhatsApp.
func (s *MessageService) LastPlatform(ctx context.Context, contactID string) (string, error) {
	p, err := repo.LastPlatform(ctx, s.DB, contactID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.PlatformWhatsApp, nil
	}
	return p, err
}

// Clear deletes the whole log and returns the number of rows removed.
func (s *MessageService) Clear(ctx context.Context) (int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Clear")
	defer span.End()

	return repo.DeleteAllMessages(ctx, s.DB)
}

// Stats returns the row count and the newest (timestamp, id) of the log.
func (s *MessageService) Stats(ctx context.Context) (count, newestTS int64, newestID uint, err error) {
	return repo.MessagesStats(ctx, s.DB)
}

func (s *MessageService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
