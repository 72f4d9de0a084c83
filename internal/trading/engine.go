package trading

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/events"
	"github.com/aristath/chronotrader/pkg/logger"
)

// maxConsecutiveStaleTicks is the cutoff from spec.md §4.4.6: a missing bar
// may be reused once from the last known bar; two consecutive stale ticks
// remove the symbol from the tick entirely.
const maxConsecutiveStaleTicks = 1

// strategyRuntime pairs a Strategy with its isolated broker and per-symbol
// stale-bar bookkeeping.
type strategyRuntime struct {
	strategy Strategy
	broker   *SimulatedBroker
	staleRun map[string]int // consecutive stale-tick count per symbol
	lastBar  map[string]domain.Bar
}

// Engine drives N strategies in lockstep against one Clock, isolating
// capital and state per strategy (spec.md §4.4).
type Engine struct {
	clock      Clock
	symbols    []string
	strategies []*strategyRuntime
	events     *events.Manager
	metrics    *Metrics
	log        zerolog.Logger
}

// NewEngine builds an Engine over clock, watching symbols, driving each of
// strategies against its own freshly-created SimulatedBroker. metrics may
// be nil, in which case telemetry is simply not recorded.
func NewEngine(clock Clock, symbols []string, strategies []Strategy, initialCashPerStrategy float64, em *events.Manager, metrics *Metrics, log zerolog.Logger) *Engine {
	runtimes := make([]*strategyRuntime, 0, len(strategies))
	for _, s := range strategies {
		runtimes = append(runtimes, &strategyRuntime{
			strategy: s,
			broker:   NewSimulatedBroker(initialCashPerStrategy, log),
			staleRun: make(map[string]int),
			lastBar:  make(map[string]domain.Bar),
		})
	}
	return &Engine{
		clock:      clock,
		symbols:    symbols,
		strategies: runtimes,
		events:     em,
		metrics:    metrics,
		log:        logger.Component(log, "trading.engine"),
	}
}

// Broker exposes the isolated broker for a strategy by id, for reporting.
func (e *Engine) Broker(strategyID string) (*SimulatedBroker, bool) {
	for _, rt := range e.strategies {
		if rt.strategy.ID() == strategyID {
			return rt.broker, true
		}
	}
	return nil, false
}

// Performances computes StrategyPerformance for every strategy from its
// broker's equity curve.
func (e *Engine) Performances() []domain.StrategyPerformance {
	out := make([]domain.StrategyPerformance, 0, len(e.strategies))
	for _, rt := range e.strategies {
		out = append(out, computePerformance(rt.strategy.ID(), rt.broker.EquityCurve(), rt.broker.initialCash))
	}
	return out
}

// RunOnce advances the engine by exactly one Clock tick: resolves live
// bars per symbol (applying the market-data failure/stale-bar policy from
// spec.md §4.4.6), builds each strategy's portfolio state, calls
// GenerateSignal, and routes buy/sell signals to that strategy's broker.
// Each strategy sees only its own state; a panic or error in one strategy
// is isolated and does not stop the others (spec.md §4.4: "survive
// strategy-level failures").
func (e *Engine) RunOnce(ctx context.Context) error {
	tick, err := e.clock.Next(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, rt := range e.strategies {
		rt := rt
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.runStrategyTick(rt, tick)
		}()
	}
	wg.Wait()
	return nil
}

func (e *Engine) runStrategyTick(rt *strategyRuntime, tick Tick) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("strategy", rt.strategy.ID()).Interface("panic", r).Msg("trading: strategy tick panicked, isolating")
		}
	}()

	prices := make(map[string]float64, len(tick.Bars))
	activeSymbols := make([]string, 0, len(e.symbols))
	for _, symbol := range e.symbols {
		bar, fresh := e.resolveBar(rt, symbol, tick)
		if !fresh && bar == (domain.Bar{}) {
			continue // removed from this tick per the stale-bar policy
		}
		prices[symbol] = bar.Close
		activeSymbols = append(activeSymbols, symbol)
	}

	for _, symbol := range activeSymbols {
		bar := rt.lastBar[symbol]
		state := BuildPortfolioState(rt.broker, symbol, prices, tick.Date)
		signal := rt.strategy.GenerateSignal(symbol, bar, state)
		e.applySignal(rt, symbol, bar, signal, tick.Date, prices)
	}

	rt.broker.MarkTick(prices, tick.Date)
	rt.strategy.OnDayEnd()
	rt.broker.MarkDayClose(prices)

	if e.metrics != nil {
		e.metrics.Equity.WithLabelValues(rt.strategy.ID()).Set(rt.broker.Equity(prices))
	}
}

// resolveBar implements spec.md §4.4.6: if a fresh bar is present in the
// tick, use it and reset the stale counter. Otherwise reuse the last known
// bar once (flagged stale); on a second consecutive stale tick, the symbol
// is dropped entirely for this tick (returns the zero Bar, fresh=false).
func (e *Engine) resolveBar(rt *strategyRuntime, symbol string, tick Tick) (domain.Bar, bool) {
	if bar, ok := tick.Bars[symbol]; ok {
		rt.lastBar[symbol] = bar
		rt.staleRun[symbol] = 0
		return bar, true
	}

	rt.staleRun[symbol]++
	if rt.staleRun[symbol] > maxConsecutiveStaleTicks {
		delete(rt.lastBar, symbol)
		return domain.Bar{}, false
	}

	last, ok := rt.lastBar[symbol]
	if !ok {
		return domain.Bar{}, false
	}
	if e.events != nil {
		e.events.Emit("trading.engine", &events.StaleBarData{Symbol: symbol, ConsecutiveCount: rt.staleRun[symbol]})
	}
	if e.metrics != nil {
		e.metrics.StaleBars.Inc()
	}
	return last, true
}

func (e *Engine) applySignal(rt *strategyRuntime, symbol string, bar domain.Bar, signal Signal, at time.Time, prices map[string]float64) {
	switch signal.Action {
	case SignalBuy:
		fill, err := rt.broker.Buy(symbol, domain.OrderMarket, signal.TargetRatio, bar.Close, 0, at, prices)
		if err != nil {
			e.log.Warn().Str("strategy", rt.strategy.ID()).Str("symbol", symbol).Err(err).Msg("trading: buy rejected")
			return
		}
		rt.strategy.OnFill(fill)
		if e.metrics != nil {
			e.metrics.Fills.Inc()
		}
	case SignalSell:
		fill, err := rt.broker.Sell(symbol, domain.OrderMarket, signal.TargetRatio, bar.Close, 0, at, prices)
		if err != nil {
			e.log.Warn().Str("strategy", rt.strategy.ID()).Str("symbol", symbol).Err(err).Msg("trading: sell rejected")
			return
		}
		rt.strategy.OnFill(fill)
		if e.metrics != nil {
			e.metrics.Fills.Inc()
		}
	case SignalHold:
		// no-op
	}
}
