package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/chronotrader/internal/config"
	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/memory"
	"github.com/aristath/chronotrader/internal/taskmonitor"
	"github.com/aristath/chronotrader/pkg/logger"
)

// similarEpisodeCount (k) is how many past episodes are retrieved as input
// to the external analyser for each trading day.
const similarEpisodeCount = 5

// Trainer drives the single-symbol Time-Travel Trainer loop from spec.md
// §4.5: snapshot_market_state -> retrieve_episodes -> external_analyse ->
// simulate_trade/hold -> assemble_episode -> add_episode -> update_progress.
type Trainer struct {
	symbol       string
	holdingDays  int
	positionSize float64
	adapter      domain.MarketDataAdapter
	store        *memory.Store
	monitor      *taskmonitor.Monitor
	analyse      domain.MultiAgentAnalyser
	export       *Exporter // nil disables JSONL export
	log          zerolog.Logger
}

// NewTrainer builds a single-symbol Trainer. export may be nil.
func NewTrainer(symbol string, cfg *config.Config, adapter domain.MarketDataAdapter, store *memory.Store, monitor *taskmonitor.Monitor, analyse domain.MultiAgentAnalyser, export *Exporter, log zerolog.Logger) *Trainer {
	return &Trainer{
		symbol:       symbol,
		holdingDays:  cfg.HoldingDays,
		positionSize: cfg.PositionSize,
		adapter:      adapter,
		store:        store,
		monitor:      monitor,
		analyse:      analyse,
		export:       export,
		log:          logger.Component(log, "trainer").With().Str("symbol", symbol).Logger(),
	}
}

// Run executes the bounded-range replay for [start, end], resuming from the
// Task Monitor's checkpoint for taskID if one exists (spec.md §4.3's resume
// protocol). Returns the number of episodes committed.
func (t *Trainer) Run(ctx context.Context, taskID string, start, end time.Time) (int, error) {
	series, err := preloadSymbol(ctx, t.adapter, t.symbol, start, end)
	if err != nil {
		return 0, err
	}
	days := series.tradingDaysInRange(start, end)

	if _, err := t.monitor.StartTask(taskID, "trainer:"+t.symbol, len(days)); err != nil {
		return 0, fmt.Errorf("trainer: start task: %w", err)
	}
	startStep, metadata, err := t.monitor.ResumeStep(taskID)
	if err != nil {
		return 0, fmt.Errorf("trainer: resume step: %w", err)
	}

	committed := toInt(metadata["episodes_committed"])

	for i := startStep; i <= len(days); i++ {
		date := days[i-1]
		episode, skip, err := t.processDay(ctx, series, date)
		if err != nil {
			_ = t.monitor.FailTask(taskID, err.Error())
			return committed, err
		}
		if skip {
			if _, err := t.monitor.UpdateProgress(taskID, fmt.Sprintf("Day %d (skipped)", i), i, map[string]interface{}{"episodes_committed": committed}); err != nil {
				return committed, err
			}
			continue
		}

		episodeID, err := t.store.AddEpisode(ctx, *episode)
		if err != nil {
			_ = t.monitor.FailTask(taskID, err.Error())
			return committed, fmt.Errorf("trainer: add episode for %s: %w", dateKey(date), err)
		}
		episode.EpisodeID = episodeID
		committed++

		if t.export != nil {
			if err := t.export.Append(*episode); err != nil {
				t.log.Warn().Err(err).Msg("trainer: jsonl export failed, continuing")
			}
		}

		if _, err := t.monitor.UpdateProgress(taskID, fmt.Sprintf("Day %d", i), i, map[string]interface{}{"episodes_committed": committed}); err != nil {
			return committed, err
		}
	}

	if err := t.monitor.CompleteTask(taskID, map[string]interface{}{"episodes_committed": committed}); err != nil {
		return committed, err
	}
	return committed, nil
}

// processDay executes one trading day's iteration of the main loop body.
// skip is true when fewer than H trading days remain to complete the
// holding period (spec.md §4.5) — the caller advances the checkpoint
// without committing an episode.
func (t *Trainer) processDay(ctx context.Context, series *symbolSeries, date time.Time) (*domain.TradingEpisode, bool, error) {
	state, err := snapshotMarketState(series, t.symbol, date)
	if err != nil {
		return nil, false, err
	}

	decisionContext, err := memory.BuildDecisionContext(state, nil, domain.DecisionChain{}, memory.DefaultOutcomeBlocklist)
	if err != nil {
		return nil, false, fmt.Errorf("trainer: build pre-analysis context: %w", err)
	}

	similarScored, err := t.store.RetrieveEpisodes(ctx, t.symbol, decisionContext, similarEpisodeCount)
	var similar []domain.TradingEpisode
	if err != nil {
		var disabled *memory.MemoryDisabled
		if !isMemoryDisabled(err, &disabled) {
			return nil, false, fmt.Errorf("trainer: retrieve similar episodes: %w", err)
		}
		// memory disabled (e.g. ANALYSIS mode or backend down): proceed with
		// no retrieved context rather than failing the whole run.
	} else {
		for _, s := range similarScored {
			similar = append(similar, domain.TradingEpisode{EpisodeID: s.EpisodeID, Symbol: s.Symbol, DecisionContext: s.DecisionContext})
		}
	}

	analyses, chain, decision, err := t.analyse(ctx, t.symbol, date, decisionContext, similar)
	if err != nil {
		return nil, false, fmt.Errorf("trainer: external analyse: %w", err)
	}
	analysisList := flattenAnalyses(analyses)

	var outcome domain.TradeOutcome
	if decision.Action != domain.ActionHold {
		out, ok, err := simulateTrade(series, date, t.holdingDays, decision)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, true, nil // insufficient trading-day history remaining: skip
		}
		outcome = out
	} else {
		outcome = domain.TradeOutcome{Action: domain.ActionHold}
	}

	episode, err := assembleEpisode(state, analysisList, chain, outcome)
	if err != nil {
		return nil, false, err
	}
	return &episode, false, nil
}

func isMemoryDisabled(err error, target **memory.MemoryDisabled) bool {
	if err == nil {
		return false
	}
	if d, ok := err.(*memory.MemoryDisabled); ok {
		*target = d
		return true
	}
	return false
}

func flattenAnalyses(m map[string]domain.AgentAnalysis) []domain.AgentAnalysis {
	out := make([]domain.AgentAnalysis, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	return out
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
