package trading

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/chronotrader/internal/domain"
)

func TestReplayClock_StepsInOrderThenCloses(t *testing.T) {
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	clock := NewReplayClock([]Tick{
		{Date: day1, Bars: map[string]domain.Bar{"AAPL": {Close: 100}}},
		{Date: day2, Bars: map[string]domain.Bar{"AAPL": {Close: 102}}},
	})

	ctx := context.Background()
	first, err := clock.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, day1, first.Date)

	second, err := clock.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, day2, second.Date)

	_, err = clock.Next(ctx)
	assert.ErrorIs(t, err, ErrClockClosed)
}

func TestReplayClock_RespectsCancelledContext(t *testing.T) {
	clock := NewReplayClock([]Tick{{Date: time.Now()}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := clock.Next(ctx)
	assert.Error(t, err)
}

func TestReplayClock_Close_IsNoop(t *testing.T) {
	clock := NewReplayClock(nil)
	assert.NoError(t, clock.Close())
}
