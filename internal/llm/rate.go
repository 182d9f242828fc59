package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// newLimiter builds a token-bucket limiter bounding outbound call rate.
// ratePerSecond <= 0 disables limiting entirely (useful for local-model
// adapters with no vendor quota to respect).
func newLimiter(ratePerSecond float64) *rate.Limiter {
	if ratePerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(ratePerSecond), 1)
}

func waitLimiter(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
