package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimited paces calls to an underlying generator with a token bucket.
type rateLimited struct {
	next    TextGenerator
	limiter *rate.Limiter
}

// NewRateLimited wraps next so at most rpm requests start per minute. A
// non-positive rpm disables pacing.
func NewRateLimited(next TextGenerator, rpm int) TextGenerator {
	if rpm <= 0 {
		return next
	}
	return &rateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
	}
}

func (r *rateLimited) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return ContentResponse{}, fmt.Errorf("limiter wait error: %w", err)
	}
	return r.next.GenerateContent(ctx, prompt)
}

// Close closes the wrapped generator when it holds resources.
func (r *rateLimited) Close() error {
	if c, ok := r.next.(Closer); ok {
		return c.Close()
	}
	return nil
}
