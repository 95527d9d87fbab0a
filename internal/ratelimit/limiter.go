// Package ratelimit implements the per-device-token daily send quota.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Kind names a counter within a token's daily record. The values double
// as the field names in the backing store.
type Kind string

const (
	KindSuccessful Kind = "successful"
	KindErrors     Kind = "errors"
)

// DefaultDailyMaximum is the number of successful sends a single device
// token is allowed per UTC day unless overridden in configuration.
const DefaultDailyMaximum = 150

// Values holds the counters of a token's daily record.
type Values struct {
	Successful int `json:"successful"`
	Errors     int `json:"errors"`
}

// CounterStore defines the subset of cache operations the limiter needs.
// Increment must be atomic per key so that concurrent sends for the same
// token never lose updates; expireAt is applied only on the key's first
// write, anchoring the window to the token's first touch that day.
type CounterStore interface {
	Counts(ctx context.Context, key string) (Values, error)
	Increment(ctx context.Context, key string, field string, expireAt time.Time) (Values, error)
}

// Limiter wraps a CounterStore with day-window semantics and the
// admission check used by the dispatcher.
type Limiter struct {
	store   CounterStore
	maximum int
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Limiter. A maximum <= 0 falls back to DefaultDailyMaximum.
func New(store CounterStore, maximum int, logger *slog.Logger) *Limiter {
	if maximum <= 0 {
		maximum = DefaultDailyMaximum
	}
	return &Limiter{
		store:   store,
		maximum: maximum,
		now:     time.Now,
		logger:  logger.With("component", "RateLimiter"),
	}
}

// Maximum returns the configured daily send quota.
func (l *Limiter) Maximum() int {
	return l.maximum
}

// RateLimits reads the current counts for a token, defaulting to zeros
// for tokens never seen before. It never creates a record.
func (l *Limiter) RateLimits(ctx context.Context, token string) (Values, error) {
	values, err := l.store.Counts(ctx, l.key(token))
	if err != nil {
		return Values{}, fmt.Errorf("rate limit read failed: %w", err)
	}
	return values, nil
}

// Increment atomically bumps the given counter for a token and returns
// the updated record. The record expires at the start of the next UTC
// day relative to the token's first write within the window.
func (l *Limiter) Increment(ctx context.Context, token string, kind Kind) (Values, error) {
	values, err := l.store.Increment(ctx, l.key(token), string(kind), l.ExpirationDate())
	if err != nil {
		return Values{}, fmt.Errorf("rate limit increment failed: %w", err)
	}
	l.logger.Debug("Counter incremented",
		"kind", string(kind),
		"successful", values.Successful,
		"errors", values.Errors,
	)
	return values, nil
}

// ShouldAllow reports whether a token is still under its daily quota.
// Only successful sends gate admission; errors are informational.
func (l *Limiter) ShouldAllow(values Values) bool {
	return values.Successful < l.maximum
}

// Remaining nets both counters out against the maximum. This is the
// figure surfaced by the rate limits query endpoint.
func (l *Limiter) Remaining(values Values) int {
	return l.maximum - values.Successful - values.Errors
}

// ExpirationDate returns the start of the next UTC calendar day. All
// tokens queried within the same day share the same instant.
func (l *Limiter) ExpirationDate() time.Time {
	return StartOfNextUTCDay(l.now())
}

// StartOfNextUTCDay truncates now to its UTC day boundary and advances
// one day.
func StartOfNextUTCDay(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

func (l *Limiter) key(token string) string {
	return fmt.Sprintf("relay:ratelimit:%s", token)
}
