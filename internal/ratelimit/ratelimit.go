package ratelimit

import (
	"context"
	"fmt"
	"time"

	"bifrost/internal/domain"
	"bifrost/internal/logger"
)

// Policy decides what happens when the shared counter store cannot answer.
type Policy string

const (
	// FailClosed denies requests when no counter decision is available.
	FailClosed Policy = "closed"
	// FailOpen allows requests when no counter decision is available.
	FailOpen Policy = "open"
)

// ParsePolicy validates a configured policy string.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case FailClosed, FailOpen:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("invalid rate limit fail policy %q (want %q or %q)", s, FailClosed, FailOpen)
	}
}

// Decision is the outcome of one quota check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// CounterStore is the narrow contract the limiter needs from a shared
// counter backend: atomically increment the window counter for key,
// starting a fresh window of size window when none is running.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, expiresIn time.Duration, err error)
}

// Limiter enforces a fixed-window quota per client key.
//
// The window is anchored at the first request that opens it (wall-clock
// aligned to arrival, not the calendar). Counters live in the store so
// every gateway instance sees the same count; nothing is cached locally.
type Limiter struct {
	store  CounterStore
	policy Policy
	logger logger.Logger
}

// New creates a limiter over store with the given store-outage policy.
func New(store CounterStore, policy Policy, log logger.Logger) *Limiter {
	return &Limiter{
		store:  store,
		policy: policy,
		logger: log,
	}
}

// Allow increments the counter for key and checks it against limit.
// Increment-then-compare keeps the overshoot under contention bounded to
// in-flight concurrent requests.
//
// On a store error the returned decision follows the configured policy and
// the error is returned alongside for observability.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	count, expiresIn, err := l.store.Incr(ctx, key, window)
	if err != nil {
		dec := Decision{Allowed: l.policy == FailOpen}
		l.logger.Warn("rate limit store unavailable, applying fail policy",
			logger.String("key", key),
			logger.String("policy", string(l.policy)),
			logger.Error(err))
		return dec, fmt.Errorf("rate limit check for %q: %w", key, err)
	}

	if count > int64(limit) {
		retry := expiresIn
		if retry <= 0 {
			retry = window
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}

	return Decision{Allowed: true, Remaining: int64(limit) - count}, nil
}

// DeniedError is the gateway error corresponding to a denied decision.
func DeniedError(key string) error {
	return fmt.Errorf("client %q: %w", key, domain.ErrRateLimitExceeded)
}
