package trainer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/chronotrader/internal/domain"
)

func TestSimulateTrade_BuyComputesPositiveReturnOnRisingSeries(t *testing.T) {
	adapter := &fakeAdapter{startPrice: 100, step: 1}
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	series, err := preloadSymbol(context.Background(), adapter, "AAPL", start, end)
	require.NoError(t, err)

	outcome, ok, err := simulateTrade(series, start, 5, domain.Decision{Action: domain.ActionBuy})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, outcome.HoldingDays)
	assert.Greater(t, outcome.PctReturn, 0.0, "a rising series entered long must show a positive return")
	assert.Equal(t, outcome.ExitPrice, outcome.EntryPrice+5)
}

func TestSimulateTrade_SellInvertsReturnSign(t *testing.T) {
	adapter := &fakeAdapter{startPrice: 100, step: 1}
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	series, err := preloadSymbol(context.Background(), adapter, "AAPL", start, end)
	require.NoError(t, err)

	outcome, ok, err := simulateTrade(series, start, 5, domain.Decision{Action: domain.ActionSell})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Less(t, outcome.PctReturn, 0.0, "a short on a rising series must show a negative return")
}

func TestSimulateTrade_InsufficientHistorySkips(t *testing.T) {
	adapter := &fakeAdapter{startPrice: 100, step: 1}
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	series, err := preloadSymbol(context.Background(), adapter, "AAPL", start, end)
	require.NoError(t, err)

	_, ok, err := simulateTrade(series, start, 9999, domain.Decision{Action: domain.ActionBuy})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssembleEpisode_HoldOutcomeHasNoTradeText(t *testing.T) {
	state := domain.MarketState{Date: time.Now(), Symbol: "AAPL", Bar: domain.Bar{Close: 100}}
	outcome := domain.TradeOutcome{Action: domain.ActionHold}

	ep, err := assembleEpisode(state, nil, domain.DecisionChain{}, outcome)
	require.NoError(t, err)
	assert.True(t, ep.Success)
	assert.Equal(t, "held, no position opened", ep.OutcomeResult)
	assert.NotContains(t, ep.DecisionContext, "held")
}

func TestAssembleEpisode_TradeOutcomeSuccessFlag(t *testing.T) {
	state := domain.MarketState{Date: time.Now(), Symbol: "AAPL", Bar: domain.Bar{Close: 100}}
	winning := domain.TradeOutcome{Action: domain.ActionBuy, EntryPrice: 100, ExitPrice: 110, PctReturn: 0.1, HoldingDays: 5}
	losing := domain.TradeOutcome{Action: domain.ActionBuy, EntryPrice: 100, ExitPrice: 90, PctReturn: -0.1, HoldingDays: 5}

	win, err := assembleEpisode(state, nil, domain.DecisionChain{}, winning)
	require.NoError(t, err)
	assert.True(t, win.Success)
	assert.Contains(t, win.OutcomeResult, "10.00%")

	lose, err := assembleEpisode(state, nil, domain.DecisionChain{}, losing)
	require.NoError(t, err)
	assert.False(t, lose.Success)
}
