package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/vendorbot/internal/config"
	"github.com/tbourn/vendorbot/internal/domain"
)

type fakeRecorder struct {
	mu   sync.Mutex
	msgs []domain.Message
	err  error
}

func (r *fakeRecorder) Append(_ context.Context, platform, contactID, direction, body string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	m := domain.Message{ID: uint(len(r.msgs) + 1), Platform: platform, ContactID: contactID, Direction: direction, Body: body}
	r.msgs = append(r.msgs, m)
	return &m, nil
}

type fakeSender struct {
	calls []string
	err   error
	block bool
}

func (s *fakeSender) Send(ctx context.Context, recipient, text string) error {
	s.calls = append(s.calls, recipient+"|"+text)
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func TestDispatcher_RecordsThenDelivers(t *testing.T) {
	rec := &fakeRecorder{}
	wa := &fakeSender{}
	d := NewDispatcher(rec, time.Second, map[string]Sender{domain.PlatformWhatsApp: wa})

	before := testutil.ToFloat64(deliveries.WithLabelValues(domain.PlatformWhatsApp, "ok"))
	require.NoError(t, d.Send(context.Background(), domain.PlatformWhatsApp, "234", "hello"))

	require.Len(t, rec.msgs, 1)
	assert.Equal(t, domain.DirectionOutbound, rec.msgs[0].Direction)
	assert.Equal(t, "234", rec.msgs[0].ContactID)
	assert.Equal(t, []string{"234|hello"}, wa.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(deliveries.WithLabelValues(domain.PlatformWhatsApp, "ok")))
}

func TestDispatcher_SwallowsDeliveryErrors(t *testing.T) {
	rec := &fakeRecorder{}
	tg := &fakeSender{err: errors.New("boom")}
	d := NewDispatcher(rec, time.Second, map[string]Sender{domain.PlatformTelegram: tg})

	before := testutil.ToFloat64(deliveries.WithLabelValues(domain.PlatformTelegram, "error"))
	assert.NoError(t, d.Send(context.Background(), domain.PlatformTelegram, "42", "x"))
	assert.Len(t, rec.msgs, 1, "message is recorded even when delivery fails")
	assert.Equal(t, before+1, testutil.ToFloat64(deliveries.WithLabelValues(domain.PlatformTelegram, "error")))
}

func TestDispatcher_TimeoutBoundsDelivery(t *testing.T) {
	rec := &fakeRecorder{}
	slow := &fakeSender{block: true}
	d := NewDispatcher(rec, 30*time.Millisecond, map[string]Sender{domain.PlatformWhatsApp: slow})

	start := time.Now()
	assert.NoError(t, d.Send(context.Background(), domain.PlatformWhatsApp, "1", "x"))
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatcher_UnknownOrUnconfiguredPlatform(t *testing.T) {
	rec := &fakeRecorder{}
	d := NewDispatcher(rec, 0, nil)
	assert.Equal(t, DefaultDeliveryTimeout, d.Timeout)

	assert.NoError(t, d.Send(context.Background(), "sms", "1", "x"))
	assert.NoError(t, d.Send(context.Background(), domain.PlatformTelegram, "1", "y"))
	assert.Len(t, rec.msgs, 2)
}

func TestDispatcher_RecordFailureReturned(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	wa := &fakeSender{}
	d := NewDispatcher(rec, time.Second, map[string]Sender{domain.PlatformWhatsApp: wa})

	assert.Error(t, d.Send(context.Background(), domain.PlatformWhatsApp, "1", "x"))
	assert.Empty(t, wa.calls, "nothing is delivered when recording fails")
}

func TestWhatsAppSender_PostsCloudAPIPayload(t *testing.T) {
	var got waSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v18.0/PID/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.x"}]}`))
	}))
	defer srv.Close()

	s := NewWhatsAppSender(config.WhatsAppConfig{APIBase: srv.URL + "/v18.0/", Token: "tok", PhoneID: "PID"})
	require.NoError(t, s.Send(context.Background(), "2348000", "hi"))
	assert.Equal(t, waSendRequest{MessagingProduct: "whatsapp", To: "2348000", Type: "text", Text: waText{Body: "hi"}}, got)
}

func TestWhatsAppSender_ErrorsAndUnconfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	defer srv.Close()

	s := NewWhatsAppSender(config.WhatsAppConfig{APIBase: srv.URL, Token: "bad", PhoneID: "PID"})
	err := s.Send(context.Background(), "1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")

	empty := NewWhatsAppSender(config.WhatsAppConfig{APIBase: srv.URL})
	assert.ErrorIs(t, empty.Send(context.Background(), "1", "x"), ErrNotConfigured)
}

func TestTelegramSender_SendMessage(t *testing.T) {
	var chatID, text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		chatID, text = r.PostForm.Get("chat_id"), r.PostForm.Get("text")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer srv.Close()

	s := NewTelegramSender(config.TelegramConfig{Token: "TOKEN", APIEndpoint: srv.URL + "/bot%s/%s"})
	require.NotNil(t, s)
	require.NoError(t, s.Send(context.Background(), "42", "hello"))
	assert.Equal(t, "42", chatID)
	assert.Equal(t, "hello", text)
}

func TestTelegramSender_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	s := NewTelegramSender(config.TelegramConfig{Token: "T", APIEndpoint: srv.URL + "/bot%s/%s"})
	err := s.Send(context.Background(), "42", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")

	assert.Error(t, s.Send(context.Background(), "not-a-number", "x"))

	var none *TelegramSender
	assert.Nil(t, NewTelegramSender(config.TelegramConfig{}))
	assert.ErrorIs(t, none.Send(context.Background(), "42", "x"), ErrNotConfigured)
}
