package trading

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/chronotrader/internal/domain"
)

func TestBroker_Buy_DeductsCashAndOpensPosition(t *testing.T) {
	b := NewSimulatedBroker(100000, zerolog.Nop())
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	fill, err := b.Buy("AAPL", domain.OrderMarket, 0.5, 100, 0, day1, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SideBuy, fill.Side)
	assert.Greater(t, fill.Quantity, 0)
	assert.Equal(t, 0, fill.Quantity%100)

	pos, ok := b.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, fill.Quantity, pos.Quantity)
	assert.Less(t, b.Cash(), 100000.0)
}

func TestBroker_Sell_EnforcesT1(t *testing.T) {
	b := NewSimulatedBroker(100000, zerolog.Nop())
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := b.Buy("AAPL", domain.OrderMarket, 0.5, 100, 0, day1, nil)
	require.NoError(t, err)

	_, err = b.Sell("AAPL", domain.OrderMarket, 1.0, 105, 0, day1, nil)
	require.Error(t, err)
	var t1 *T1Violation
	assert.ErrorAs(t, err, &t1)
}

func TestBroker_Sell_AllowedNextSession(t *testing.T) {
	b := NewSimulatedBroker(100000, zerolog.Nop())
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	buyFill, err := b.Buy("AAPL", domain.OrderMarket, 0.5, 100, 0, day1, nil)
	require.NoError(t, err)

	sellFill, err := b.Sell("AAPL", domain.OrderMarket, 1.0, 110, 0, day2, nil)
	require.NoError(t, err)
	assert.Equal(t, buyFill.Quantity, sellFill.Quantity)

	_, ok := b.Position("AAPL")
	assert.False(t, ok, "fully sold position must be removed")
}

func TestBroker_Sell_NoPositionErrors(t *testing.T) {
	b := NewSimulatedBroker(100000, zerolog.Nop())
	_, err := b.Sell("AAPL", domain.OrderMarket, 0.5, 100, 0, time.Now(), nil)
	require.Error(t, err)
	var noPos *NoPosition
	assert.ErrorAs(t, err, &noPos)
}

func TestBroker_Buy_InsufficientCash(t *testing.T) {
	b := NewSimulatedBroker(50, zerolog.Nop())
	_, err := b.Buy("AAPL", domain.OrderMarket, 1.0, 100, 0, time.Now(), nil)
	require.Error(t, err)
	var insufficient *InsufficientCash
	assert.ErrorAs(t, err, &insufficient)
}

func TestBroker_LimitBuy_DoesNotCrossAboveLimit(t *testing.T) {
	b := NewSimulatedBroker(100000, zerolog.Nop())
	_, err := b.Buy("AAPL", domain.OrderLimit, 0.5, 120, 100, time.Now(), nil)
	assert.Error(t, err, "limit buy at 100 must not fill when tick is 120")
}

func TestBroker_LimitBuy_CrossesAtOrBelowLimit(t *testing.T) {
	b := NewSimulatedBroker(100000, zerolog.Nop())
	fill, err := b.Buy("AAPL", domain.OrderLimit, 0.5, 95, 100, time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, 95.0, fill.Price)
}

func TestBroker_Equity_MatchesInvariantI4(t *testing.T) {
	b := NewSimulatedBroker(100000, zerolog.Nop())
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	_, err := b.Buy("AAPL", domain.OrderMarket, 0.3, 50, 0, day1, nil)
	require.NoError(t, err)

	prices := map[string]float64{"AAPL": 55}
	equity := b.Equity(prices)

	pos, _ := b.Position("AAPL")
	expected := b.Cash() + pos.MarketValue(55)
	assert.Equal(t, expected, equity)
}

func TestBroker_Buy_SnapshotIncludesAllHeldPositions(t *testing.T) {
	b := NewSimulatedBroker(1_000_000, zerolog.Nop())
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := b.Buy("AAPL", domain.OrderMarket, 0.2, 100, 0, day1, nil)
	require.NoError(t, err)
	_, err = b.Buy("MSFT", domain.OrderMarket, 0.2, 200, 0, day1, map[string]float64{"AAPL": 100})
	require.NoError(t, err)

	curve := b.EquityCurve()
	require.Len(t, curve, 2)
	last := curve[1]

	aapl, _ := b.Position("AAPL")
	msft, _ := b.Position("MSFT")
	expectedMV := aapl.MarketValue(100) + msft.MarketValue(200)
	assert.Equal(t, expectedMV, last.PositionsMV, "PositionsMV must sum every held position, not just the symbol just traded")
	assert.Equal(t, b.Cash()+expectedMV, last.TotalEquity)
}

func TestBroker_Sell_SnapshotIncludesRemainingOtherPositions(t *testing.T) {
	b := NewSimulatedBroker(1_000_000, zerolog.Nop())
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	_, err := b.Buy("AAPL", domain.OrderMarket, 0.2, 100, 0, day1, nil)
	require.NoError(t, err)
	_, err = b.Buy("MSFT", domain.OrderMarket, 0.2, 200, 0, day1, map[string]float64{"AAPL": 100})
	require.NoError(t, err)

	_, err = b.Sell("MSFT", domain.OrderMarket, 1.0, 210, 0, day2, map[string]float64{"AAPL": 105})
	require.NoError(t, err)

	curve := b.EquityCurve()
	last := curve[len(curve)-1]

	aapl, _ := b.Position("AAPL")
	_, stillHeld := b.Position("MSFT")
	assert.False(t, stillHeld, "MSFT fully sold")
	expectedMV := aapl.MarketValue(105)
	assert.Equal(t, expectedMV, last.PositionsMV, "PositionsMV must still include AAPL after selling MSFT")
	assert.Equal(t, b.Cash()+expectedMV, last.TotalEquity)
}

func TestBroker_MarkTick_RecordsSnapshot(t *testing.T) {
	b := NewSimulatedBroker(100000, zerolog.Nop())
	snap := b.MarkTick(map[string]float64{}, time.Now())
	assert.Equal(t, 100000.0, snap.TotalEquity)
	assert.Len(t, b.EquityCurve(), 1)
}

func TestBroker_PartialSell_Quantized(t *testing.T) {
	b := NewSimulatedBroker(1_000_000, zerolog.Nop())
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	_, err := b.Buy("AAPL", domain.OrderMarket, 1.0, 100, 0, day1, nil)
	require.NoError(t, err)
	before, _ := b.Position("AAPL")

	_, err = b.Sell("AAPL", domain.OrderMarket, 0.5, 105, 0, day2, nil)
	require.NoError(t, err)
	after, ok := b.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, 0, after.Quantity%100, "residual after partial sell of a large position must stay lot-quantized (I3)")
	assert.Less(t, after.Quantity, before.Quantity)
}
