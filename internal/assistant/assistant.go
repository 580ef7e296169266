package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tbourn/vendorbot/internal/domain"
)

const systemPromptTemplate = `You are the ordering assistant of a small Nigerian food vendor.
Speak friendly Nigerian English or light Pidgin. Keep replies short.

Menu:
%s

Rules:
1. Only sell items on the menu, at menu prices.
2. Answer questions about the menu politely.
3. When the customer has clearly confirmed everything they want, set "status" to "complete",
   summarise the order in "order" and put the sum in "total".

Respond with a single JSON object only:
{"intent": "ORDER|INQUIRY|CHITCHAT", "status": "incomplete|complete", "message": "<reply to the customer>",
 "order": "<short summary>", "order_items": [{"item_name": "...", "quantity": 1}], "total": 0}`

var assistantDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "vendorbot_assistant_duration_seconds",
		Help:    "Latency of assistant calls in seconds.",
		Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 15, 30},
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(assistantDuration)
}

// Assistant classifies a customer message and drafts the reply.
type Assistant struct {
	Gen     TextGenerator
	Timeout time.Duration
}

// New returns an Assistant over gen with the given per-call timeout.
func New(gen TextGenerator, timeout time.Duration) *Assistant {
	return &Assistant{Gen: gen, Timeout: timeout}
}

// ClassifyAndReply asks the model for a reply given the live menu, the
// contact's recent history (oldest first) and the current message.
func (a *Assistant) ClassifyAndReply(ctx context.Context, menu string, history []domain.Message, message string) (Reply, error) {
	ctx, span := otel.Tracer("assistant").Start(ctx, "ClassifyAndReply")
	defer span.End()

	if a.Gen == nil {
		return Reply{}, fmt.Errorf("assistant: no generator configured")
	}
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := a.Gen.GenerateText(ctx, SystemPrompt(menu), UserPrompt(history, message))
	result := "ok"
	if err != nil {
		result = "error"
	}
	assistantDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		return Reply{}, fmt.Errorf("assistant: %w", err)
	}

	r := Normalize(raw)
	span.SetAttributes(
		attribute.String("assistant.intent", r.Intent),
		attribute.Bool("assistant.complete", r.Complete),
	)
	return r, nil
}

// SystemPrompt renders the instruction block for menu.
func SystemPrompt(menu string) string {
	return fmt.Sprintf(systemPromptTemplate, menu)
}

// UserPrompt renders history as "User: ..." / "AI: ..." lines followed by the
// current message:
//
//	HISTORY:
//	User: hi
//	AI: Welcome!
//	CURRENT MSG: 2 jollof
func UserPrompt(history []domain.Message, message string) string {
	var b strings.Builder
	b.WriteString("HISTORY:\n")
	for i, m := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		if m.Direction == domain.DirectionInbound {
			b.WriteString("User: ")
		} else {
			b.WriteString("AI: ")
		}
		b.WriteString(m.Body)
	}
	b.WriteString("\nCURRENT MSG: ")
	b.WriteString(message)
	return b.String()
}
