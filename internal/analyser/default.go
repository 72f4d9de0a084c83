// Package analyser provides the default MultiAgentAnalyser wiring for the
// trainer binary. The actual multi-agent debate (bull/bear/judge/risk
// prompts) is an external collaborator per spec.md §6 — this package only
// supplies a minimal, safe fallback so the trainer can run end to end
// without one configured.
package analyser

import (
	"context"
	"strings"
	"time"

	"github.com/aristath/chronotrader/internal/domain"
)

// Default turns decisionContext into a single action via an optional
// LLMRouter. With no router configured it always holds — a conservative
// default that never opens a position without a real analyser behind it.
type Default struct {
	router domain.LLMRouter
}

// New builds a Default analyser. router may be nil.
func New(router domain.LLMRouter) *Default {
	return &Default{router: router}
}

// Analyse satisfies domain.MultiAgentAnalyser.
func (d *Default) Analyse(ctx context.Context, symbol string, date time.Time, decisionContext string, similar []domain.TradingEpisode) (map[string]domain.AgentAnalysis, domain.DecisionChain, domain.Decision, error) {
	if d.router == nil {
		chain := domain.DecisionChain{JudgeDecision: "no analyser configured, holding", FinalAction: domain.ActionHold}
		return nil, chain, domain.Decision{Action: domain.ActionHold}, nil
	}

	_, call := d.router.PickLLM("judge")
	prompt := "Given the following market context for " + symbol + ", respond with exactly one word: BUY, SELL, or HOLD.\n\n" + decisionContext
	reply, err := call(ctx, prompt)
	if err != nil {
		chain := domain.DecisionChain{JudgeDecision: "llm call failed, holding", FinalAction: domain.ActionHold}
		return nil, chain, domain.Decision{Action: domain.ActionHold}, nil
	}

	action := parseAction(reply)
	analyses := map[string]domain.AgentAnalysis{
		"judge": {AgentName: "judge", Direction: directionFor(action), Confidence: 0.5, Reasoning: strings.TrimSpace(reply)},
	}
	chain := domain.DecisionChain{JudgeDecision: strings.TrimSpace(reply), FinalAction: action}
	decision := domain.Decision{Action: action, TargetRatio: 0.2}
	if action == domain.ActionHold {
		decision.TargetRatio = 0
	}
	return analyses, chain, decision, nil
}

func parseAction(reply string) domain.Action {
	switch strings.ToUpper(strings.TrimSpace(reply)) {
	case "BUY":
		return domain.ActionBuy
	case "SELL":
		return domain.ActionSell
	default:
		return domain.ActionHold
	}
}

func directionFor(action domain.Action) domain.Direction {
	switch action {
	case domain.ActionBuy:
		return domain.DirectionLong
	case domain.ActionSell:
		return domain.DirectionShort
	default:
		return domain.DirectionHold
	}
}
