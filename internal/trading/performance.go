package trading

import (
	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/pkg/formulas"
)

// computePerformance derives a StrategyPerformance from an equity curve
// using pkg/formulas, the same statistics the Time-Travel Trainer uses to
// score episodes.
func computePerformance(strategyID string, curve []domain.EquitySnapshot, initialCash float64) domain.StrategyPerformance {
	if len(curve) == 0 {
		return domain.StrategyPerformance{StrategyID: strategyID}
	}

	equities := make([]float64, len(curve))
	wins := 0
	for i, snap := range curve {
		equities[i] = snap.TotalEquity
		if i > 0 && snap.TotalEquity > curve[i-1].TotalEquity {
			wins++
		}
	}

	dailyReturns := formulas.Returns(equities)
	finalEquity := equities[len(equities)-1]
	totalReturn := 0.0
	if initialCash > 0 {
		totalReturn = (finalEquity - initialCash) / initialCash
	}

	years := curve[len(curve)-1].Timestamp.Sub(curve[0].Timestamp).Hours() / (24 * 365)
	if years <= 0 {
		years = 1.0 / 252 // a single trading day, expressed as a year-fraction
	}

	winRate := 0.0
	if len(curve) > 1 {
		winRate = float64(wins) / float64(len(curve)-1)
	}

	return domain.StrategyPerformance{
		StrategyID:  strategyID,
		TotalReturn: totalReturn,
		SharpeRatio: formulas.SharpeRatio(dailyReturns, 0),
		MaxDrawdown: formulas.MaxDrawdown(equities),
		CAGR:        formulas.CAGR(initialCash, finalEquity, years),
		WinRate:     winRate,
		TradeCount:  len(curve),
	}
}
