package trainer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/chronotrader/internal/config"
	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/memory"
)

func TestBasketTrainer_Run_CommitsOnePortfolioEpisodePerDay(t *testing.T) {
	adapter := &fakeAdapter{startPrice: 100, step: 1}
	store := newTestStore(t, config.ModeTraining)
	monitor := newTestMonitor(t)
	cfg := newTestConfig(3, 2, 0.2, 10000)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC)

	bt, err := NewBasketTrainer(context.Background(), []string{"AAPL", "MSFT"}, cfg, adapter, store, monitor, alwaysHold, nil, start, end, zerolog.Nop())
	require.NoError(t, err)

	committed, err := bt.Run(context.Background(), uniqueTaskID(t), start, end)
	require.NoError(t, err)
	assert.Equal(t, 6, committed)
}

func TestBasketTrainer_MaxPositionsCapEnforced(t *testing.T) {
	adapter := &fakeAdapter{startPrice: 100, step: 1}
	store := newTestStore(t, config.ModeTraining)
	monitor := newTestMonitor(t)
	cfg := newTestConfig(10, 1, 0.5, 10000)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	bt, err := NewBasketTrainer(context.Background(), []string{"AAPL", "MSFT", "GOOG"}, cfg, adapter, store, monitor, alwaysBuy, nil, start, end, zerolog.Nop())
	require.NoError(t, err)

	_, err = bt.processDay(context.Background(), start)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(bt.positions), 1, "basket must never exceed maxPositions concurrent holdings")
}

func TestBasketTrainer_ForcedExitAtHoldingAgeLimit(t *testing.T) {
	adapter := &fakeAdapter{startPrice: 100, step: 1}
	store := newTestStore(t, config.ModeTraining)
	monitor := newTestMonitor(t)
	cfg := newTestConfig(2, 1, 0.5, 10000)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	bt, err := NewBasketTrainer(context.Background(), []string{"AAPL"}, cfg, adapter, store, monitor, alwaysBuy, nil, start, end, zerolog.Nop())
	require.NoError(t, err)

	_, err = bt.processDay(context.Background(), start)
	require.NoError(t, err)
	require.Len(t, bt.positions, 1, "a buy decision on day 1 should open a position")

	exitDate := start.AddDate(0, 0, 2)
	ep, err := bt.processDay(context.Background(), exitDate)
	require.NoError(t, err)
	assert.Len(t, bt.positions, 1, "the forced exit frees the slot which alwaysBuy immediately refills")
	assert.Equal(t, domain.ActionSell, ep.Outcome.Action, "a realized exit reports through the sell-shaped combined outcome")

	lower := strings.ToLower(ep.DecisionContext)
	for _, tok := range memory.DefaultOutcomeBlocklist {
		assert.NotContains(t, lower, strings.ToLower(tok), "forced-exit commentary must not leak outcome text into DecisionContext")
	}
}

func TestBasketTrainer_CombinedEpisodeUsesPortfolioSymbol(t *testing.T) {
	adapter := &fakeAdapter{startPrice: 100, step: 1}
	store := newTestStore(t, config.ModeTraining)
	monitor := newTestMonitor(t)
	cfg := newTestConfig(3, 2, 0.2, 10000)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC)

	bt, err := NewBasketTrainer(context.Background(), []string{"AAPL", "MSFT"}, cfg, adapter, store, monitor, alwaysHold, nil, start, end, zerolog.Nop())
	require.NoError(t, err)

	ep, err := bt.processDay(context.Background(), start)
	require.NoError(t, err)
	assert.Equal(t, portfolioSymbol, ep.Symbol)
	assert.Equal(t, portfolioSymbol, ep.MarketState.Symbol)
}
