package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RateLimiter paces consecutive requests. Wait blocks until the configured
// delay has passed since the last Done.
type RateLimiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
	Done()
}

// Feedback is implemented by limiters that adapt to request outcomes.
type Feedback interface {
	RecordSuccess()
	RecordError()
}

type SimpleRateLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
	jitter     bool
}

func NewSimpleRateLimiter(minDelay, maxDelay time.Duration) *SimpleRateLimiter {
	r := &SimpleRateLimiter{jitter: true}
	r.setDelay(minDelay, maxDelay)
	return r
}

func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastAction.IsZero() {
		return ctx.Err()
	}

	elapsed := time.Since(r.lastAction)
	delay := r.calculateDelay()

	if elapsed < delay {
		timer := time.NewTimer(delay - elapsed)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Done marks the end of a request; the next Wait is measured from here.
func (r *SimpleRateLimiter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastAction = time.Now()
}

func (r *SimpleRateLimiter) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setDelay(min, max)
}

func (r *SimpleRateLimiter) setDelay(min, max time.Duration) {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	r.minDelay = min
	r.maxDelay = max
}

func (r *SimpleRateLimiter) calculateDelay() time.Duration {
	if !r.jitter || r.minDelay == r.maxDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	jitter := time.Duration(rand.Int63n(int64(delta)))
	return r.minDelay + jitter
}

// AdaptiveRateLimiter stretches the configured window after repeated errors
// and relaxes it again after a run of successes.
type AdaptiveRateLimiter struct {
	*SimpleRateLimiter
	baseMin       time.Duration
	baseMax       time.Duration
	factor        float64
	errorCount    int
	successCount  int
	maxErrorCount int
	backoffFactor float64
	maxFactor     float64
}

func NewAdaptiveRateLimiter(minDelay, maxDelay time.Duration) *AdaptiveRateLimiter {
	a := &AdaptiveRateLimiter{
		SimpleRateLimiter: NewSimpleRateLimiter(minDelay, maxDelay),
		factor:            1,
		maxErrorCount:     3,
		backoffFactor:     1.5,
		maxFactor:         4,
	}
	a.baseMin, a.baseMax = a.minDelay, a.maxDelay
	return a
}

// SetDelay sets the base window; the current backoff factor is applied on top.
func (a *AdaptiveRateLimiter) SetDelay(min, max time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.baseMin, a.baseMax = min, max
	a.apply()
}

func (a *AdaptiveRateLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount > 5 {
		a.factor *= 0.9
		if a.factor < 1 {
			a.factor = 1
		}
		a.successCount = 0
		a.apply()
	}
}

func (a *AdaptiveRateLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= a.maxErrorCount {
		a.factor *= a.backoffFactor
		if a.factor > a.maxFactor {
			a.factor = a.maxFactor
		}
		a.errorCount = 0
		a.apply()
	}
}

// Factor returns the current backoff multiplier.
func (a *AdaptiveRateLimiter) Factor() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.factor
}

func (a *AdaptiveRateLimiter) apply() {
	a.setDelay(
		time.Duration(float64(a.baseMin)*a.factor),
		time.Duration(float64(a.baseMax)*a.factor),
	)
}
