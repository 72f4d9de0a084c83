package trading

import (
	"sync"

	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/pkg/formulas"
)

// rsiOversold/rsiOverbought are the entry/exit thresholds MomentumStrategy
// trades on — a standard RSI(14) band, confirmed by the MA20/MA50 trend
// filter so a deeply oversold price in a confirmed downtrend isn't bought.
const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// MomentumStrategy is the engine's built-in default Strategy: an RSI(14)
// mean-reversion entry gated by an MA20/MA50 trend filter, computed from a
// per-symbol rolling close history it accumulates tick by tick. Concrete
// strategies are otherwise an external plug-in surface (spec.md §6) — this
// one exists so the engine binary has something runnable out of the box.
type MomentumStrategy struct {
	BaseStrategy
	mu     sync.Mutex
	window int
	closes map[string][]float64
}

// NewMomentumStrategy builds a MomentumStrategy keeping up to window recent
// closes per symbol (window must comfortably exceed 50 to warm up MA50).
func NewMomentumStrategy(id string, window int) *MomentumStrategy {
	return &MomentumStrategy{
		BaseStrategy: NewBaseStrategy("momentum-rsi", id),
		window:       window,
		closes:       make(map[string][]float64),
	}
}

func (s *MomentumStrategy) GenerateSignal(symbol string, bar domain.Bar, portfolio domain.PortfolioState) Signal {
	s.mu.Lock()
	series := append(s.closes[symbol], bar.Close)
	if len(series) > s.window {
		series = series[len(series)-s.window:]
	}
	s.closes[symbol] = series
	s.mu.Unlock()

	ind := formulas.LastIndicators(series)
	switch {
	case ind.RSI14 != 0 && ind.RSI14 < rsiOversold && ind.MA20 >= ind.MA50 && !portfolio.HasPosition:
		return Signal{Action: SignalBuy, TargetRatio: 0.2, Reason: "rsi oversold in uptrend", Confidence: 0.6}
	case ind.RSI14 != 0 && ind.RSI14 > rsiOverbought && portfolio.HasPosition:
		return Signal{Action: SignalSell, TargetRatio: 1.0, Reason: "rsi overbought, exiting", Confidence: 0.6}
	default:
		return Signal{Action: SignalHold}
	}
}
