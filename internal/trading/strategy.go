// Package trading implements the Multi-Strategy Trading Engine (spec.md
// §4.4): N strategies driven in lockstep against one market clock, each
// with isolated capital and state, supervised by a restart-bounded
// watchdog.
package trading

import (
	"github.com/aristath/chronotrader/internal/domain"
)

// SignalAction is a strategy's order-worthy recommendation for one tick.
type SignalAction string

const (
	SignalBuy  SignalAction = "buy"
	SignalSell SignalAction = "sell"
	SignalHold SignalAction = "hold"
)

// Signal is a strategy's decision for one symbol on one tick (spec.md
// §4.4.1). TargetRatio on a buy is the fraction of cash to commit; on a
// sell it is the fraction of the current position to liquidate — it is
// NEVER divided by 100 again downstream (spec.md §4.4.3).
type Signal struct {
	Action      SignalAction
	TargetRatio float64 // [0, 1]
	Reason      string
	Confidence  float64
}

// Strategy is the polymorphic capability set spec.md §4.4.1 defines. Only
// GenerateSignal is required; OnFill and OnDayEnd are optional lifecycle
// hooks a strategy may implement to react to fills or mark day boundaries —
// expressed here as a single interface with no-op defaults via
// BaseStrategy, rather than two parallel interfaces, since every concrete
// strategy in this module wants both hooks available.
type Strategy interface {
	Name() string
	ID() string
	GenerateSignal(symbol string, bar domain.Bar, portfolio domain.PortfolioState) Signal
	OnFill(fill domain.Fill)
	OnDayEnd()
}

// BaseStrategy gives OnFill/OnDayEnd no-op bodies so concrete strategies
// can embed it and only implement GenerateSignal, matching spec.md's
// framing of those two hooks as optional.
type BaseStrategy struct {
	name string
	id   string
}

// NewBaseStrategy constructs a BaseStrategy carrying its identity.
func NewBaseStrategy(name, id string) BaseStrategy { return BaseStrategy{name: name, id: id} }

func (b BaseStrategy) Name() string          { return b.name }
func (b BaseStrategy) ID() string            { return b.id }
func (b BaseStrategy) OnFill(domain.Fill)    {}
func (b BaseStrategy) OnDayEnd()             {}
