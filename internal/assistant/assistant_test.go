package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/vendorbot/internal/config"
	"github.com/tbourn/vendorbot/internal/domain"
)

func TestUserPrompt_RendersHistoryOldestFirst(t *testing.T) {
	hist := []domain.Message{
		{Direction: domain.DirectionInbound, Body: "hi"},
		{Direction: domain.DirectionOutbound, Body: "Welcome!"},
		{Direction: domain.DirectionInbound, Body: "2 jollof"},
	}
	got := UserPrompt(hist, "2 jollof")
	assert.Equal(t, "HISTORY:\nUser: hi\nAI: Welcome!\nUser: 2 jollof\nCURRENT MSG: 2 jollof", got)
	assert.Equal(t, "HISTORY:\n\nCURRENT MSG: Hi", UserPrompt(nil, "Hi"))
}

func TestSystemPrompt_EmbedsMenu(t *testing.T) {
	assert.Contains(t, SystemPrompt("- Rice: N500"), "- Rice: N500")
}

func TestClassifyAndReply_PassesPromptsAndNormalizes(t *testing.T) {
	var gotSystem, gotUser string
	gen := TextGeneratorFunc(func(ctx context.Context, system, user string) (string, error) {
		gotSystem, gotUser = system, user
		_, hasDeadline := ctx.Deadline()
		require.True(t, hasDeadline, "timeout must be applied")
		return `{"message":"Okay","status":"complete","order":"1 Rice","total":500}`, nil
	})
	a := New(gen, time.Second)

	r, err := a.ClassifyAndReply(context.Background(), "- Rice: N500", nil, "1 rice")
	require.NoError(t, err)
	assert.True(t, r.Complete)
	assert.Equal(t, "1 Rice", r.OrderSummary)
	assert.Equal(t, 500.0, r.Total)
	assert.Contains(t, gotSystem, "- Rice: N500")
	assert.True(t, strings.HasSuffix(gotUser, "CURRENT MSG: 1 rice"))
}

func TestClassifyAndReply_TimeoutSurfacesError(t *testing.T) {
	gen := TextGeneratorFunc(func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	a := New(gen, 20*time.Millisecond)

	_, err := a.ClassifyAndReply(context.Background(), "", nil, "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClassifyAndReply_NoGenerator(t *testing.T) {
	_, err := (&Assistant{}).ClassifyAndReply(context.Background(), "", nil, "hi")
	assert.Error(t, err)
}

func TestOpenAICompatGenerator_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var req oaiChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"message\":\"hi\"} "}}]}`))
	}))
	defer srv.Close()

	g := NewOpenAICompatGenerator(srv.URL+"/v1/", "k", "m")
	out, err := g.GenerateText(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"message":"hi"}`, out)
}

func TestOpenAICompatGenerator_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAICompatGenerator(srv.URL, "", "m").GenerateText(context.Background(), "", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	_, err = NewOpenAICompatGenerator(srv.URL, "", "").GenerateText(context.Background(), "", "u")
	assert.Error(t, err)
}

func TestGeminiGenerator_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		assert.Equal(t, "sys", req.SystemInstruction.Parts[0].Text)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"message\":\"ok\"}"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGeminiGenerator("key", "models/gemini-1.5-flash")
	require.NoError(t, err)
	out, err := g.WithBaseURL(srv.URL).GenerateText(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"message":"ok"}`, out)
}

func TestGeminiGenerator_Validation(t *testing.T) {
	_, err := NewGeminiGenerator(" ", "m")
	assert.Error(t, err)
	_, err = NewGeminiGenerator("k", "")
	assert.Error(t, err)
}

func TestNewGenerator_SelectsProvider(t *testing.T) {
	g, err := NewGenerator(config.AssistantConfig{Provider: "openai", BaseURL: "http://x/v1", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAICompatGenerator{}, g)

	g, err = NewGenerator(config.AssistantConfig{Provider: "gemini", APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &GeminiGenerator{}, g)

	_, err = NewGenerator(config.AssistantConfig{Provider: "bard"})
	assert.Error(t, err)
}
