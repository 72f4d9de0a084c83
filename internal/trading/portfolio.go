package trading

import (
	"time"

	"github.com/aristath/chronotrader/internal/domain"
)

// BuildPortfolioState assembles the portfolio_state contract spec.md
// §4.4.4 requires before every GenerateSignal call, reading only from the
// real broker — no synthesised fields.
func BuildPortfolioState(b *SimulatedBroker, symbol string, prices map[string]float64, now time.Time) domain.PortfolioState {
	equity := b.Equity(prices)
	cash := b.Cash()
	positions := b.Positions()

	state := domain.PortfolioState{
		Cash:        cash,
		TotalEquity: equity,
	}
	if equity > 0 {
		state.CashRatio = cash / equity
	}

	if pos, ok := positions[symbol]; ok {
		price := prices[symbol]
		state.HasPosition = true
		state.Position = toPositionView(pos, price, now)
		if equity > 0 {
			state.PositionRatio = pos.MarketValue(price) / equity
		}
	}

	for sym, pos := range positions {
		if sym == symbol {
			continue
		}
		state.OtherPositions = append(state.OtherPositions, toPositionView(pos, prices[sym], now))
	}

	return state
}

func toPositionView(pos domain.Position, price float64, now time.Time) domain.PositionView {
	return domain.PositionView{
		Symbol:           pos.Symbol,
		Quantity:         pos.Quantity,
		AvgPrice:         pos.AvgPrice,
		CostBasis:        pos.CostBasis(),
		MarketValue:      pos.MarketValue(price),
		UnrealizedPnL:    pos.UnrealizedPnL(price),
		UnrealizedPnLPct: pos.UnrealizedPnLPct(price),
		CanSellToday:     pos.CanSellToday(now),
		BoughtDate:       pos.BoughtDate,
	}
}
