package memory

import (
	"fmt"
	"strings"

	"github.com/aristath/chronotrader/internal/domain"
)

// DefaultOutcomeBlocklist is the policy blocklist of outcome keywords
// (spec.md §4.2.2). Implementers are told to treat this as configuration
// and fail closed on unknown fields (spec.md §9 open question); callers may
// override it via Store.WithBlocklist for deployments with additional
// synonyms (including non-English ones the spec explicitly flags as
// unresolved).
var DefaultOutcomeBlocklist = []string{
	"return", "returned", "pct_return", "pnl", "p&l", "profit", "loss",
	"gain", "drawdown", "exit_price", "holding_days", "outcome",
	"win rate", "winning", "losing",
}

// containsBlocklistedToken reports whether text contains any blocklist
// entry, case-insensitively, as a whole-ish word match (substring match is
// intentionally used over exact word-boundary matching: spec.md §9 says to
// fail closed on unknown variants, and a looser match is the closed-failure
// direction).
func containsBlocklistedToken(text string, blocklist []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, tok := range blocklist {
		if strings.Contains(lower, strings.ToLower(tok)) {
			return tok, true
		}
	}
	return "", false
}

// BuildDecisionContext assembles the embedding/retrieval text for an
// episode from the fixed whitelist of decision-time attributes (spec.md
// §4.2.2). It is the ONLY place decision_context text is constructed, and
// it is the runtime guard behind invariant I1: it never reads from
// TradeOutcome.
//
// analyses and chain are decision-time by construction (the analyser never
// sees the outcome); market is a MarketState, also decision-time by
// construction (domain.MarketState has no outcome fields). BuildDecisionContext
// additionally runs the leakage blocklist over the assembled text as
// defense in depth, per spec.md §4.2.2.
func BuildDecisionContext(market domain.MarketState, analyses []domain.AgentAnalysis, chain domain.DecisionChain, blocklist []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\nSymbol: %s\nRegime: %s\n", market.Date.Format("2006-01-02"), market.Symbol, market.Regime)
	fmt.Fprintf(&b, "Close: %.4f Volume: %.0f\n", market.Bar.Close, market.Bar.Volume)
	fmt.Fprintf(&b, "RSI14: %.2f MACD: %.4f Signal: %.4f MA20: %.4f MA50: %.4f\n",
		market.Indicators.RSI14, market.Indicators.MACD, market.Indicators.Signal,
		market.Indicators.MA20, market.Indicators.MA50)

	for _, a := range analyses {
		fmt.Fprintf(&b, "Agent %s: direction=%s confidence=%.2f reasoning=%s\n",
			a.AgentName, a.Direction, a.Confidence, a.Reasoning)
	}

	fmt.Fprintf(&b, "Bull: %s\nBear: %s\nJudge: %s\nRisk: %s\nFinalAction: %s\n",
		chain.BullArgument, chain.BearArgument, chain.JudgeDecision, chain.RiskDecision, chain.FinalAction)

	text := b.String()
	if tok, hit := containsBlocklistedToken(text, blocklist); hit {
		return "", &LeakageViolation{MatchedToken: tok}
	}
	return text, nil
}
