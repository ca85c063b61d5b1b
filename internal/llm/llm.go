package llm

import (
	"context"
	"fmt"

	"performance-meal-planner/internal/config"
	"performance-meal-planner/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// Provider names accepted in llm.provider.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderNone   = "none"
)

// NewTextGenerator builds the configured generator wrapped in a rate
// limiter. It returns nil for the "none" provider; callers treat a nil
// generator as "no recipe service available".
func NewTextGenerator(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	var gen TextGenerator
	switch cfg.LLM.Provider {
	case ProviderNone, "":
		return nil, nil
	case ProviderGemini:
		g, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		gen = g
	case ProviderGroq:
		gen = NewGroqClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	return NewRateLimited(gen, cfg.LLM.RequestsPerMinute), nil
}
