package domain

import (
	"context"
	"time"
)

// Direction is an agent's directional call.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionHold  Direction = "hold"
)

// AgentAnalysis is one agent's opinion for a decision date. Immutable once
// attached to an episode.
type AgentAnalysis struct {
	AgentName     string
	Direction     Direction
	Confidence    float64 // [0,1]
	Reasoning     string
	ExecutionMS   int64
	IsError       bool
}

// DecisionChain is the multi-agent debate trail that produced a final action.
type DecisionChain struct {
	BullArgument string
	BearArgument string
	JudgeDecision string
	RiskDecision  string
	FinalAction   Action
}

// Action is the order-worthy decision emitted by the analyser.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Decision is the external analyser's final, order-worthy output.
type Decision struct {
	Action       Action
	TargetRatio  float64 // proportion, not a percent: 0.5 means 50%
}

// TradeOutcome holds everything computed AFTER the decision date. None of
// this may leak into a decision_context string (invariant I1).
type TradeOutcome struct {
	Action      Action
	EntryPrice  float64
	ExitPrice   float64
	HoldingDays int
	PctReturn   float64
	MaxDrawdown float64
}

// TradingEpisode is one committed (context -> outcome) training record.
//
// DecisionContext MUST be built exclusively from fields knowable on or
// before Date (I1); Vector MUST be computed from DecisionContext alone (I2).
// OutcomeResult is the only place TradeOutcome-derived text may live.
type TradingEpisode struct {
	EpisodeID       string // date+symbol, or date+"PORTFOLIO" in basket mode
	Date            time.Time
	Symbol          string
	MarketState     MarketState
	Analyses        []AgentAnalysis
	DecisionChain   DecisionChain
	Outcome         TradeOutcome
	DecisionContext string
	OutcomeResult   string
	Success         bool
}

// MultiAgentAnalyser is the opaque external collaborator (§6) that turns a
// decision-time context plus retrieved similar episodes into agent analyses,
// a decision chain, and a final order-worthy decision.
type MultiAgentAnalyser func(ctx context.Context, symbol string, date time.Time, decisionContext string, similar []TradingEpisode) (map[string]AgentAnalysis, DecisionChain, Decision, error)

// LLMTier selects a model size class for LLMRouter.
type LLMTier string

const (
	TierSmall  LLMTier = "small"
	TierMedium LLMTier = "medium"
	TierLarge  LLMTier = "large"
)

// LLMRouter picks a callable LLM for a named agent role. The core treats the
// returned value as opaque; it never inspects or calls it directly — this
// exists so the config flag enable_small_model_routing has somewhere to land.
type LLMRouter interface {
	PickLLM(agentName string) (tier LLMTier, call func(ctx context.Context, prompt string) (string, error))
}
