package trainer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/chronotrader/internal/config"
	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/memory"
	"github.com/aristath/chronotrader/internal/taskmonitor"
	"github.com/aristath/chronotrader/pkg/logger"
)

// portfolioSymbol is the fixed symbol name combined basket episodes are
// committed under (spec.md §4.5: "records one combined episode per day with
// symbol = \"PORTFOLIO\"").
const portfolioSymbol = "PORTFOLIO"

// basketPosition is one open slot in the basket's shared cash pool.
type basketPosition struct {
	Symbol     string
	EntryDate  time.Time
	EntryPrice float64
	Quantity   int
}

// ageInTradingDays returns how many trading-day bars separate entry from
// the current date within series' pre-loaded history.
func ageInTradingDays(series *symbolSeries, entry, current time.Time) int {
	age := 0
	for _, b := range series.ordered {
		if b.Date.After(entry) && !b.Date.After(current) {
			age++
		}
	}
	return age
}

// BasketTrainer generalizes Trainer to a small fixed basket of symbols
// sharing one cash pool, at most maxPositions concurrent holdings, each
// sized at positionSize of the pool (spec.md §4.5 "Portfolio mode").
type BasketTrainer struct {
	symbols      []string
	holdingDays  int
	maxPositions int
	positionSize float64
	cash         float64
	positions    map[string]basketPosition
	series       map[string]*symbolSeries
	store        *memory.Store
	monitor      *taskmonitor.Monitor
	analyse      domain.MultiAgentAnalyser
	export       *Exporter
	log          zerolog.Logger
}

// NewBasketTrainer builds a BasketTrainer over symbols, preloading each
// one's history via adapter for [start-365d, end+30d].
func NewBasketTrainer(ctx context.Context, symbols []string, cfg *config.Config, adapter domain.MarketDataAdapter, store *memory.Store, monitor *taskmonitor.Monitor, analyse domain.MultiAgentAnalyser, export *Exporter, start, end time.Time, log zerolog.Logger) (*BasketTrainer, error) {
	series := make(map[string]*symbolSeries, len(symbols))
	for _, symbol := range symbols {
		s, err := preloadSymbol(ctx, adapter, symbol, start, end)
		if err != nil {
			return nil, err
		}
		series[symbol] = s
	}
	return &BasketTrainer{
		symbols:      symbols,
		holdingDays:  cfg.HoldingDays,
		maxPositions: cfg.MaxPositions,
		positionSize: cfg.PositionSize,
		cash:         cfg.InitialCash,
		positions:    make(map[string]basketPosition),
		series:       series,
		store:        store,
		monitor:      monitor,
		analyse:      analyse,
		export:       export,
		log:          logger.Component(log, "trainer.basket"),
	}, nil
}

// Run walks the union of trading days across the basket's series in
// [start, end], resuming from taskID's checkpoint. Each day it first forces
// exits for positions at age >= H, then opens new positions against
// available slots from the analyser's recommendations, and commits exactly
// one combined PORTFOLIO episode.
func (b *BasketTrainer) Run(ctx context.Context, taskID string, start, end time.Time) (int, error) {
	days := b.unionTradingDays(start, end)

	if _, err := b.monitor.StartTask(taskID, "trainer:portfolio", len(days)); err != nil {
		return 0, fmt.Errorf("trainer: start portfolio task: %w", err)
	}
	startStep, metadata, err := b.monitor.ResumeStep(taskID)
	if err != nil {
		return 0, fmt.Errorf("trainer: resume portfolio step: %w", err)
	}
	committed := toInt(metadata["episodes_committed"])

	for i := startStep; i <= len(days); i++ {
		date := days[i-1]
		episode, err := b.processDay(ctx, date)
		if err != nil {
			_ = b.monitor.FailTask(taskID, err.Error())
			return committed, err
		}

		episodeID, err := b.store.AddEpisode(ctx, *episode)
		if err != nil {
			_ = b.monitor.FailTask(taskID, err.Error())
			return committed, fmt.Errorf("trainer: add portfolio episode: %w", err)
		}
		episode.EpisodeID = episodeID
		committed++

		if b.export != nil {
			if err := b.export.Append(*episode); err != nil {
				b.log.Warn().Err(err).Msg("trainer: jsonl export failed, continuing")
			}
		}

		if _, err := b.monitor.UpdateProgress(taskID, fmt.Sprintf("Day %d", i), i, map[string]interface{}{"episodes_committed": committed}); err != nil {
			return committed, err
		}
	}

	if err := b.monitor.CompleteTask(taskID, map[string]interface{}{"episodes_committed": committed}); err != nil {
		return committed, err
	}
	return committed, nil
}

func (b *BasketTrainer) unionTradingDays(start, end time.Time) []time.Time {
	seen := make(map[string]time.Time)
	for _, series := range b.series {
		for _, d := range series.tradingDaysInRange(start, end) {
			seen[dateKey(d)] = d
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sortTimes(out)
	return out
}

func sortTimes(ts []time.Time) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].Before(ts[j-1]); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}

func (b *BasketTrainer) processDay(ctx context.Context, date time.Time) (*domain.TradingEpisode, error) {
	var exitTexts []string
	var returns []float64

	for symbol, pos := range b.positions {
		series := b.series[symbol]
		if ageInTradingDays(series, pos.EntryDate, date) < b.holdingDays {
			continue
		}
		bar, ok := series.barOn(date)
		if !ok {
			continue
		}
		pctReturn := (bar.Close - pos.EntryPrice) / pos.EntryPrice
		b.cash += float64(pos.Quantity) * bar.Close
		delete(b.positions, symbol)
		returns = append(returns, pctReturn)
		exitTexts = append(exitTexts, fmt.Sprintf("position in %s was closed at %s", symbol, dateKey(date)))
	}

	var contexts []string
	var allAnalyses []domain.AgentAnalysis
	var states []domain.MarketState
	var chains []domain.DecisionChain

	for _, symbol := range b.symbols {
		if _, held := b.positions[symbol]; held {
			continue
		}
		if len(b.positions) >= b.maxPositions {
			break
		}
		series := b.series[symbol]
		state, err := snapshotMarketState(series, symbol, date)
		if err != nil {
			continue // symbol has no bar this day, skip it for new entries
		}
		decisionContext, err := memory.BuildDecisionContext(state, nil, domain.DecisionChain{}, memory.DefaultOutcomeBlocklist)
		if err != nil {
			return nil, fmt.Errorf("trainer: build pre-analysis context for %s: %w", symbol, err)
		}

		similarScored, err := b.store.RetrieveEpisodes(ctx, symbol, decisionContext, similarEpisodeCount)
		var similar []domain.TradingEpisode
		var disabled *memory.MemoryDisabled
		if err != nil && !isMemoryDisabled(err, &disabled) {
			return nil, fmt.Errorf("trainer: retrieve similar episodes for %s: %w", symbol, err)
		}
		for _, s := range similarScored {
			similar = append(similar, domain.TradingEpisode{EpisodeID: s.EpisodeID, Symbol: s.Symbol, DecisionContext: s.DecisionContext})
		}

		analyses, chain, decision, err := b.analyse(ctx, symbol, date, decisionContext, similar)
		if err != nil {
			return nil, fmt.Errorf("trainer: external analyse for %s: %w", symbol, err)
		}

		states = append(states, state)
		chains = append(chains, chain)
		allAnalyses = append(allAnalyses, flattenAnalyses(analyses)...)
		contexts = append(contexts, decisionContext)

		if decision.Action == domain.ActionBuy {
			notional := b.cash * b.positionSize
			qty := int(math.Floor(notional / state.Bar.Close))
			if qty > 0 && notional <= b.cash {
				b.cash -= float64(qty) * state.Bar.Close
				b.positions[symbol] = basketPosition{Symbol: symbol, EntryDate: date, EntryPrice: state.Bar.Close, Quantity: qty}
				contexts = append(contexts, fmt.Sprintf("opened %s at %.4f", symbol, state.Bar.Close))
			}
		}
	}

	combinedContext := strings.Join(append(contexts, exitTexts...), "\n")
	outcome := combinedOutcome(returns)
	var representative domain.MarketState
	if len(states) > 0 {
		representative = states[0]
	} else {
		representative = domain.MarketState{Date: date, Symbol: portfolioSymbol}
	}
	representative.Symbol = portfolioSymbol

	outcomeResult := fmt.Sprintf("portfolio day %s: %d exits, avg return %.2f%%, %d open positions", dateKey(date), len(returns), outcome.PctReturn*100, len(b.positions))

	var chain domain.DecisionChain
	if len(chains) > 0 {
		chain = chains[len(chains)-1]
	}

	episode := domain.TradingEpisode{
		EpisodeID:       dateKey(date) + "_" + portfolioSymbol,
		Date:            date,
		Symbol:          portfolioSymbol,
		MarketState:     representative,
		Analyses:        allAnalyses,
		DecisionChain:   chain,
		Outcome:         outcome,
		DecisionContext: combinedContext,
		OutcomeResult:   outcomeResult,
		Success:         outcome.PctReturn >= 0,
	}
	return &episode, nil
}

func combinedOutcome(returns []float64) domain.TradeOutcome {
	if len(returns) == 0 {
		return domain.TradeOutcome{Action: domain.ActionHold}
	}
	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	return domain.TradeOutcome{Action: domain.ActionSell, PctReturn: sum / float64(len(returns))}
}
