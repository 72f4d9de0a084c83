package trainer

import (
	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/pkg/formulas"
)

// classifyRegime tags a date's broad market condition from its trailing
// moving averages alone — a cheap decision-time-only signal (invariant I1)
// that never looks past the snapshot date, since indicators is already
// computed from closesThrough(date).
func classifyRegime(indicators formulas.Indicators) domain.MarketRegime {
	if indicators.MA20 == 0 || indicators.MA50 == 0 {
		return domain.RegimeUnknown
	}
	spread := (indicators.MA20 - indicators.MA50) / indicators.MA50
	switch {
	case spread > 0.02:
		return domain.RegimeBull
	case spread < -0.02:
		return domain.RegimeBear
	default:
		return domain.RegimeChoppy
	}
}
