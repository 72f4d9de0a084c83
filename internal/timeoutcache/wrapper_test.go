package timeoutcache

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/chronotrader/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWithTimeout_FastPathReturnsValue(t *testing.T) {
	pool := NewPool(zerolog.Nop(), 2)
	em := events.NewManager()

	got := WithTimeout(context.Background(), pool, zerolog.Nop(), em, "fast", time.Second,
		func(ctx context.Context) (string, error) { return "ok", nil },
		func() string { return "fallback" })

	assert.Equal(t, "ok", got)
}

func TestWithTimeout_SlowCallReturnsFallback(t *testing.T) {
	pool := NewPool(zerolog.Nop(), 2)
	em := events.NewManager()

	var fallbackEmitted bool
	em.Subscribe(events.CacheFallback, func(events.Envelope) { fallbackEmitted = true })

	got := WithTimeout(context.Background(), pool, zerolog.Nop(), em, "slow", 20*time.Millisecond,
		func(ctx context.Context) (string, error) {
			select {
			case <-time.After(time.Second):
				return "too-late", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
		func() string { return "sentinel-fallback" })

	assert.Equal(t, "sentinel-fallback", got)
	assert.True(t, fallbackEmitted)
}

func TestWithTimeout_NeverPanics(t *testing.T) {
	pool := NewPool(zerolog.Nop(), 1)
	em := events.NewManager()

	assert.NotPanics(t, func() {
		WithTimeout(context.Background(), pool, zerolog.Nop(), em, "err", time.Second,
			func(ctx context.Context) (int, error) { return 0, assert.AnError },
			func() int { return -1 })
	})
}
