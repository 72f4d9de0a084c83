package trainer

import (
	"fmt"
	"time"

	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/memory"
	"github.com/aristath/chronotrader/pkg/formulas"
)

// simulateTrade opens a position at date's close and exits at the close of
// the H-th subsequent trading day (not calendar day), computing the forward
// TradeOutcome spec.md §4.5 requires. ok is false when fewer than H trading
// days remain in the pre-loaded series, signalling the caller to skip this
// day entirely.
func simulateTrade(series *symbolSeries, date time.Time, holdingDays int, decision domain.Decision) (domain.TradeOutcome, bool, error) {
	entryBar, ok := series.barOn(date)
	if !ok {
		return domain.TradeOutcome{}, false, fmt.Errorf("trainer: no entry bar for %s", dateKey(date))
	}
	exitBar, ok := series.nthTradingDayAfter(date, holdingDays)
	if !ok {
		return domain.TradeOutcome{}, false, nil
	}

	pctReturn := (exitBar.Close - entryBar.Close) / entryBar.Close
	if decision.Action == domain.ActionSell {
		pctReturn = -pctReturn // short: profits when price falls
	}

	closes := closesBetween(series, date, exitBar.Date)
	maxDD := formulas.MaxDrawdown(closes)

	return domain.TradeOutcome{
		Action:      decision.Action,
		EntryPrice:  entryBar.Close,
		ExitPrice:   exitBar.Close,
		HoldingDays: holdingDays,
		PctReturn:   pctReturn,
		MaxDrawdown: maxDD,
	}, true, nil
}

// closesBetween returns the closing-price series for bars in [start, end]
// inclusive.
func closesBetween(series *symbolSeries, start, end time.Time) []float64 {
	var out []float64
	for _, b := range series.ordered {
		if b.Date.Before(start) {
			continue
		}
		if b.Date.After(end) {
			break
		}
		out = append(out, b.Close)
	}
	return out
}

// assembleEpisode builds the final TradingEpisode: decision_context via the
// same leakage-guarded whitelist the memory store itself enforces
// (invariant I1), and outcome_result as the one place TradeOutcome-derived
// text may live.
func assembleEpisode(state domain.MarketState, analyses []domain.AgentAnalysis, chain domain.DecisionChain, outcome domain.TradeOutcome) (domain.TradingEpisode, error) {
	decisionContext, err := memory.BuildDecisionContext(state, analyses, chain, memory.DefaultOutcomeBlocklist)
	if err != nil {
		return domain.TradingEpisode{}, fmt.Errorf("trainer: assemble episode: %w", err)
	}

	outcomeResult := formatOutcomeResult(outcome)
	success := outcome.Action == domain.ActionHold || outcome.PctReturn > 0

	return domain.TradingEpisode{
		EpisodeID:       dateKey(state.Date) + "_" + state.Symbol,
		Date:            state.Date,
		Symbol:          state.Symbol,
		MarketState:     state,
		Analyses:        analyses,
		DecisionChain:   chain,
		Outcome:         outcome,
		DecisionContext: decisionContext,
		OutcomeResult:   outcomeResult,
		Success:         success,
	}, nil
}

func formatOutcomeResult(o domain.TradeOutcome) string {
	if o.Action == domain.ActionHold {
		return "held, no position opened"
	}
	return fmt.Sprintf("%s: entry %.4f, exit %.4f after %d trading days, return %.2f%%, max drawdown %.2f%%",
		o.Action, o.EntryPrice, o.ExitPrice, o.HoldingDays, o.PctReturn*100, o.MaxDrawdown*100)
}
