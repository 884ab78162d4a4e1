package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// TokenBucket bounds the rate of incoming scrape requests.
type TokenBucket struct {
	limiter *rate.Limiter
}

func NewTokenBucket(perSecond float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow reports whether a request may proceed now.
func (t *TokenBucket) Allow() bool {
	return t.limiter.Allow()
}

func (t *TokenBucket) Wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
