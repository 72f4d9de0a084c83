package trading

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/chronotrader/internal/domain"
)

func TestBuildPortfolioState_NoPosition(t *testing.T) {
	b := NewSimulatedBroker(100000, zerolog.Nop())
	state := BuildPortfolioState(b, "AAPL", map[string]float64{"AAPL": 150}, time.Now())

	assert.False(t, state.HasPosition)
	assert.Equal(t, 100000.0, state.Cash)
	assert.Equal(t, 100000.0, state.TotalEquity)
	assert.Equal(t, 1.0, state.CashRatio)
	assert.Empty(t, state.OtherPositions)
}

func TestBuildPortfolioState_WithPositionAndOthers(t *testing.T) {
	b := NewSimulatedBroker(1_000_000, zerolog.Nop())
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	_, err := b.Buy("AAPL", domain.OrderMarket, 0.2, 100, 0, day1, nil)
	require.NoError(t, err)
	_, err = b.Buy("MSFT", domain.OrderMarket, 0.2, 200, 0, day1, nil)
	require.NoError(t, err)

	prices := map[string]float64{"AAPL": 110, "MSFT": 210}
	state := BuildPortfolioState(b, "AAPL", prices, day2)

	require.True(t, state.HasPosition)
	assert.Equal(t, "AAPL", state.Position.Symbol)
	assert.True(t, state.Position.CanSellToday, "bought day1, viewed day2 must be sellable")
	assert.Greater(t, state.Position.UnrealizedPnL, 0.0)

	require.Len(t, state.OtherPositions, 1)
	assert.Equal(t, "MSFT", state.OtherPositions[0].Symbol)

	assert.InDelta(t, state.Cash+state.Position.MarketValue+state.OtherPositions[0].MarketValue, state.TotalEquity, 0.001)
}

func TestBuildPortfolioState_CashRatioZeroWhenEquityZero(t *testing.T) {
	b := NewSimulatedBroker(0, zerolog.Nop())
	state := BuildPortfolioState(b, "AAPL", map[string]float64{"AAPL": 100}, time.Now())
	assert.Equal(t, 0.0, state.CashRatio)
	assert.Equal(t, 0.0, state.PositionRatio)
}
