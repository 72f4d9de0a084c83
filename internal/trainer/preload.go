// Package trainer implements the Time-Travel Trainer (spec.md §4.5): for
// each trading day in a bounded range, it reconstructs the information
// available on that day, invokes an external multi-agent analyser, opens a
// simulated trade at the day's close, closes it after a holding period, and
// commits a leakage-free TradingEpisode to the memory store.
package trainer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/pkg/formulas"
)

// preloadLookbackDays/preloadLookaheadDays are the contractual pre-load window from spec.md §4.5:
// "[start-365d, end+30d]".
const (
	preloadLookbackDays = 365
	preloadLookaheadDays = 30
)

// symbolSeries is one symbol's pre-loaded, date-indexed bar history. Built
// once per trainer run so that snapshot_market_state and simulate_trade are
// O(1) dictionary lookups instead of O(days) adapter calls — the difference
// spec.md §4.5 calls "a ~40-minute run vs a >2-hour run".
type symbolSeries struct {
	bars     map[string]domain.Bar // key: civil date "2006-01-02"
	ordered  []domain.Bar          // oldest-to-newest, for indicator warm-up and trading-day walks
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// preloadSymbol fetches and indexes one symbol's full history for the
// [start-365d, end+30d] window via adapter, routed through the Timeout/Cache
// Wrapper by the caller (adapter is expected to already be cache/timeout
// wrapped; the trainer itself issues exactly one call per symbol per run).
func preloadSymbol(ctx context.Context, adapter domain.MarketDataAdapter, symbol string, start, end time.Time) (*symbolSeries, error) {
	from := start.AddDate(0, 0, -preloadLookbackDays)
	to := end.AddDate(0, 0, preloadLookaheadDays)

	bars, err := adapter.GetBars(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("trainer: preload %s [%s, %s]: %w", symbol, from.Format("2006-01-02"), to.Format("2006-01-02"), err)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	series := &symbolSeries{bars: make(map[string]domain.Bar, len(bars)), ordered: bars}
	for _, b := range bars {
		series.bars[dateKey(b.Date)] = b
	}
	return series, nil
}

// barOn returns the bar for date and whether it exists.
func (s *symbolSeries) barOn(date time.Time) (domain.Bar, bool) {
	b, ok := s.bars[dateKey(date)]
	return b, ok
}

// closesThrough returns the closing-price series for every bar strictly on
// or before date, oldest-to-newest — the slice LastIndicators needs, built
// without leaking any later bar (invariant I1).
func (s *symbolSeries) closesThrough(date time.Time) []float64 {
	out := make([]float64, 0, len(s.ordered))
	for _, b := range s.ordered {
		if b.Date.After(date) {
			break
		}
		out = append(out, b.Close)
	}
	return out
}

// nthTradingDayAfter returns the bar H trading days after date (not
// calendar days), and whether enough trading days remain in the pre-loaded
// series (spec.md §4.5: "if fewer than H trading days remain... skip").
func (s *symbolSeries) nthTradingDayAfter(date time.Time, h int) (domain.Bar, bool) {
	idx := -1
	for i, b := range s.ordered {
		if dateKey(b.Date) == dateKey(date) {
			idx = i
			break
		}
	}
	if idx < 0 || idx+h >= len(s.ordered) {
		return domain.Bar{}, false
	}
	return s.ordered[idx+h], true
}

// tradingDaysInRange returns every bar date in [start, end], oldest-to-
// newest, used as the trainer's outer loop — it walks only sessions the
// pre-loaded series actually has, never a calendar day with no data.
func (s *symbolSeries) tradingDaysInRange(start, end time.Time) []time.Time {
	var out []time.Time
	for _, b := range s.ordered {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b.Date)
	}
	return out
}

// snapshotMarketState builds the decision-time-only MarketState for symbol
// on date from the pre-loaded series (spec.md §4.5, invariant I1): the
// indicator series is computed over closesThrough(date), never a bar after
// date.
func snapshotMarketState(series *symbolSeries, symbol string, date time.Time) (domain.MarketState, error) {
	bar, ok := series.barOn(date)
	if !ok {
		return domain.MarketState{}, fmt.Errorf("trainer: no bar for %s on %s", symbol, dateKey(date))
	}
	indicators := formulas.LastIndicators(series.closesThrough(date))
	return domain.MarketState{
		Date:       date,
		Symbol:     symbol,
		Bar:        bar,
		Indicators: indicators,
		Regime:     classifyRegime(indicators),
	}, nil
}
