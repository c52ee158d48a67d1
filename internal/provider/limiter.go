package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rcliao/msg-memory/internal/config"
)

// Limiter spaces calls to a cloud backend with exponential backoff driven by
// consecutive failures. Each provider instance owns its own Limiter.
type Limiter struct {
	base     time.Duration
	maxDelay time.Duration
	maxExp   int

	mu            sync.Mutex
	failures      int
	lastRequestAt time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a limiter from rate-limit settings.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		base:     cfg.BaseDelay,
		maxDelay: cfg.MaxDelay,
		maxExp:   cfg.MaxExponent,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// BackoffDelay returns min(base * 2^min(failures, maxExp), maxDelay).
func BackoffDelay(base, maxDelay time.Duration, maxExp, failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	if failures > maxExp {
		failures = maxExp
	}
	d := base << uint(failures)
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}

// Delay returns the spacing currently required between calls.
func (l *Limiter) Delay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return BackoffDelay(l.base, l.maxDelay, l.maxExp, l.failures)
}

// Failures returns the current consecutive-failure count.
func (l *Limiter) Failures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}

// Wait blocks until the next call is allowed and records the call time.
// Concurrent callers are queued: each reserves its slot before sleeping.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := l.now()
	var wait time.Duration
	if !l.lastRequestAt.IsZero() {
		required := BackoffDelay(l.base, l.maxDelay, l.maxExp, l.failures)
		if elapsed := now.Sub(l.lastRequestAt); elapsed < required {
			wait = required - elapsed
		}
	}
	l.lastRequestAt = now.Add(wait)
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	return l.sleep(ctx, wait)
}

// Success resets the failure count.
func (l *Limiter) Success() {
	l.mu.Lock()
	l.failures = 0
	l.mu.Unlock()
}

// Failure records a failed call.
func (l *Limiter) Failure() {
	l.mu.Lock()
	l.failures++
	l.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// recordOutcome feeds a call result into lim. Successes reset the count.
// Server errors and caller cancellation leave it unchanged; everything else
// (rate limits, other client errors, transport failures, unusable bodies)
// increments it.
func recordOutcome(lim *Limiter, err error) {
	switch {
	case err == nil:
		lim.Success()
	case errors.Is(err, ErrServerError), errors.Is(err, context.Canceled):
	default:
		lim.Failure()
	}
}
