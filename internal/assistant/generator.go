// Package assistant turns a customer message into a vendor reply using a
// hosted language model. Providers implement TextGenerator; Assistant builds
// the prompt from the live menu and the conversation history, applies the
// call timeout, and normalizes the free-form model output into a Reply.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbourn/vendorbot/internal/config"
)

// TextGenerator produces a completion for a system and a user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TextGeneratorFunc adapts a plain function to TextGenerator.
type TextGeneratorFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// GenerateText calls f.
func (f TextGeneratorFunc) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// NewGenerator builds the TextGenerator selected by cfg.Provider.
func NewGenerator(cfg config.AssistantConfig) (TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai", "groq":
		return NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case "gemini":
		return NewGeminiGenerator(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported assistant provider %q", cfg.Provider)
	}
}
