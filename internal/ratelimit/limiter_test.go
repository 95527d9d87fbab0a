package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is a minimal in-package CounterStore. It records the expiry
// passed on a key's first increment so tests can assert what the
// limiter hands to the store.
type fakeStore struct {
	counts   map[string]Values
	expireAt map[string]time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts:   make(map[string]Values),
		expireAt: make(map[string]time.Time),
	}
}

func (s *fakeStore) Counts(_ context.Context, key string) (Values, error) {
	return s.counts[key], nil
}

func (s *fakeStore) Increment(_ context.Context, key string, field string, expireAt time.Time) (Values, error) {
	values := s.counts[key]
	switch field {
	case string(KindSuccessful):
		values.Successful++
	case string(KindErrors):
		values.Errors++
	}
	s.counts[key] = values
	if _, ok := s.expireAt[key]; !ok {
		s.expireAt[key] = expireAt
	}
	return values, nil
}

func TestLimiter_Counts(t *testing.T) {
	ctx := context.Background()
	limiter := New(newFakeStore(), 100, newTestLogger())

	t.Run("Unknown token defaults to zero counts", func(t *testing.T) {
		values, err := limiter.RateLimits(ctx, "never-seen")
		require.NoError(t, err)
		assert.Equal(t, Values{Successful: 0, Errors: 0}, values)
	})

	t.Run("Increment bumps only the requested counter", func(t *testing.T) {
		values, err := limiter.Increment(ctx, "token-a", KindSuccessful)
		require.NoError(t, err)
		assert.Equal(t, 1, values.Successful)
		assert.Equal(t, 0, values.Errors)

		values, err = limiter.RateLimits(ctx, "token-a")
		require.NoError(t, err)
		assert.Equal(t, Values{Successful: 1, Errors: 0}, values)
	})

	t.Run("Error increments do not touch successes", func(t *testing.T) {
		values, err := limiter.Increment(ctx, "token-b", KindErrors)
		require.NoError(t, err)
		assert.Equal(t, Values{Successful: 0, Errors: 1}, values)
	})
}

func TestLimiter_IncrementPassesWindowExpiry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	limiter := New(store, 100, newTestLogger())
	limiter.now = func() time.Time {
		return time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)
	}

	_, err := limiter.Increment(ctx, "token-a", KindSuccessful)
	require.NoError(t, err)

	assert.Equal(t,
		time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
		store.expireAt[limiter.key("token-a")],
	)
}

func TestLimiter_Admission(t *testing.T) {
	limiter := New(newFakeStore(), 5, newTestLogger())

	assert.True(t, limiter.ShouldAllow(Values{Successful: 4}))
	assert.False(t, limiter.ShouldAllow(Values{Successful: 5}))
	// Errors never gate admission.
	assert.True(t, limiter.ShouldAllow(Values{Successful: 0, Errors: 500}))

	assert.Equal(t, 5, limiter.Maximum())
	// Remaining nets out both counters.
	assert.Equal(t, -2, limiter.Remaining(Values{Successful: 3, Errors: 4}))
}

func TestLimiter_ExpirationDate(t *testing.T) {
	limiter := New(newFakeStore(), 100, newTestLogger())

	t.Run("Same instant for the whole calendar day", func(t *testing.T) {
		morning := time.Date(2025, 6, 10, 8, 30, 0, 0, time.UTC)
		evening := time.Date(2025, 6, 10, 23, 59, 59, 0, time.UTC)

		limiter.now = func() time.Time { return morning }
		first := limiter.ExpirationDate()

		limiter.now = func() time.Time { return evening }
		second := limiter.ExpirationDate()

		assert.Equal(t, first, second)
		assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), first)
	})

	t.Run("Advances strictly after midnight", func(t *testing.T) {
		today := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return today }
		before := limiter.ExpirationDate()

		limiter.now = func() time.Time { return today.Add(24 * time.Hour) }
		after := limiter.ExpirationDate()

		assert.True(t, after.After(before))
	})

	t.Run("TTL is positive and under a day", func(t *testing.T) {
		for _, now := range []time.Time{
			time.Date(2025, 6, 10, 0, 0, 1, 0, time.UTC),
			time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 10, 23, 59, 59, 0, time.UTC),
			// Non-UTC zone resolves to the same UTC day boundary.
			time.Date(2025, 6, 10, 5, 0, 0, 0, time.FixedZone("EST", -5*3600)),
		} {
			limiter.now = func() time.Time { return now }
			ttl := limiter.ExpirationDate().Sub(now)
			assert.Greater(t, ttl, time.Duration(0), "now=%s", now)
			assert.Less(t, ttl, 24*time.Hour, "now=%s", now)
		}
	})
}
