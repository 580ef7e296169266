package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/vendorbot/internal/domain"
	"github.com/tbourn/vendorbot/internal/sysutil"
)

// DefaultDeliveryTimeout bounds a single delivery attempt.
const DefaultDeliveryTimeout = 2 * time.Second

// deliveries counts delivery attempts by platform and result
// (ok, error, timeout, unconfigured, unknown_platform).
var deliveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vendorbot_deliveries_total",
		Help: "Outbound delivery attempts by platform and result.",
	},
	[]string{"platform", "result"},
)

func init() {
	prometheus.MustRegister(deliveries)
}

// Recorder appends a message to the conversation log.
type Recorder interface {
	Append(ctx context.Context, platform, contactID, direction, body string) (*domain.Message, error)
}

// Dispatcher records outbound messages and delivers them.
type Dispatcher struct {
	Log     Recorder
	Senders map[string]Sender
	Timeout time.Duration
}

// NewDispatcher returns a Dispatcher. Nil senders are skipped.
func NewDispatcher(log Recorder, timeout time.Duration, senders map[string]Sender) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	m := make(map[string]Sender, len(senders))
	for p, s := range senders {
		if s != nil {
			m[p] = s
		}
	}
	return &Dispatcher{Log: log, Senders: m, Timeout: timeout}
}

// Send records text as an outbound message to recipient and then delivers it
// on platform. Only a recording failure is returned; delivery problems are
// logged and counted.
func (d *Dispatcher) Send(ctx context.Context, platform, recipient, text string) error {
	ctx, span := otel.Tracer("messaging/Dispatcher").Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("platform", platform),
			attribute.String("recipient", recipient),
		),
	)
	defer span.End()

	lg := sysutil.Logger(ctx)
	if _, err := d.Log.Append(ctx, platform, recipient, domain.DirectionOutbound, text); err != nil {
		lg.Error().Err(err).Str("platform", platform).Msg("record outbound message")
		return err
	}

	sender, ok := d.Senders[platform]
	if !ok {
		result := "unknown_platform"
		if platform == domain.PlatformWhatsApp || platform == domain.PlatformTelegram {
			result = "unconfigured"
		}
		deliveries.WithLabelValues(platform, result).Inc()
		lg.Warn().Str("platform", platform).Str("result", result).Msg("delivery skipped")
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	err := sender.Send(sendCtx, recipient, text)
	switch {
	case err == nil:
		deliveries.WithLabelValues(platform, "ok").Inc()
	case errors.Is(err, context.DeadlineExceeded):
		deliveries.WithLabelValues(platform, "timeout").Inc()
		lg.Warn().Err(err).Str("platform", platform).Dur("timeout", d.Timeout).Msg("delivery timed out")
	case errors.Is(err, ErrNotConfigured):
		deliveries.WithLabelValues(platform, "unconfigured").Inc()
		lg.Warn().Str("platform", platform).Msg("delivery skipped: sender not configured")
	default:
		deliveries.WithLabelValues(platform, "error").Inc()
		lg.Error().Err(err).Str("platform", platform).Msg("delivery failed")
	}
	return nil
}
