// Command engine runs the Multi-Strategy Trading Engine against a replayed
// CSV market-data feed, supervised by a restart-bounded watchdog, reporting
// per-strategy status to the log stream on a fixed cadence.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/aristath/chronotrader/internal/config"
	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/events"
	"github.com/aristath/chronotrader/internal/marketdata"
	"github.com/aristath/chronotrader/internal/trading"
	"github.com/aristath/chronotrader/pkg/logger"
)

func main() {
	rosterPath := flag.String("roster", "", "path to a YAML strategy/basket roster (optional)")
	marketDir := flag.String("market-data", "", "directory of <symbol>.csv OHLCV files")
	startFlag := flag.String("start", "", "replay start date, YYYY-MM-DD")
	endFlag := flag.String("end", "", "replay end date, YYYY-MM-DD")
	flag.Parse()

	log := logger.New(logger.Config{Level: "info", Pretty: true})
	log.Info().Msg("chronotrader: starting trading engine")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("chronotrader: failed to load configuration")
	}

	startDate, endDate, err := parseReplayWindow(*startFlag, *endFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("chronotrader: invalid replay window")
	}

	symbols, strategies := buildRoster(log, cfg, *rosterPath)

	dataDir := *marketDir
	if dataDir == "" {
		dataDir = filepath.Join(cfg.DataDir, "market_data")
	}
	adapter := marketdata.NewCSVAdapter(dataDir)
	clock, err := buildReplayClock(adapter, symbols, startDate, endDate)
	if err != nil {
		log.Fatal().Err(err).Msg("chronotrader: failed to build replay clock")
	}

	em := events.NewManager()
	metrics := trading.NewMetrics(prometheus.NewRegistry())
	reporter := trading.NewReporter(log)

	engine := trading.NewEngine(clock, symbols, strategies, cfg.InitialCash, em, metrics, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runWorker := func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if err := engine.RunOnce(ctx); err != nil {
				if err == trading.ErrClockClosed {
					log.Info().Msg("chronotrader: replay complete")
					return nil
				}
				return err
			}
		}
	}

	sup := trading.NewSupervisor("engine", cfg.HeartbeatInterval(), cfg.MaxRestarts, runWorker, em, metrics, log)

	go func() {
		sup.Run(ctx)
		cancel()
	}()

	reportTicker := time.NewTicker(cfg.HeartbeatInterval())
	defer reportTicker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case <-quit:
			log.Info().Msg("chronotrader: shutdown signal received")
			sup.Stop()
			break loop
		case <-ctx.Done():
			break loop
		case <-reportTicker.C:
			reporter.Render(statusRows(engine, sup, strategies))
		}
	}

	reporter.Render(statusRows(engine, sup, strategies))
	log.Info().Msg("chronotrader: trading engine stopped")
}

func parseReplayWindow(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		now := time.Now()
		return now.AddDate(-1, 0, 0), now, nil
	}
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse -start: %w", err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse -end: %w", err)
	}
	return s, e, nil
}

// buildRoster loads a YAML strategy/basket roster if rosterPath is set,
// otherwise falls back to a single built-in MomentumStrategy over a tiny
// default basket — enough to make the binary runnable without a config file.
func buildRoster(log zerolog.Logger, cfg *config.Config, rosterPath string) ([]string, []trading.Strategy) {
	if rosterPath != "" {
		roster, err := config.LoadStrategyRoster(rosterPath)
		if err != nil {
			log.Fatal().Err(err).Msg("chronotrader: failed to load strategy roster")
		}
		strategies := make([]trading.Strategy, 0, len(roster.Strategies))
		for _, s := range roster.Strategies {
			strategies = append(strategies, trading.NewMomentumStrategy(s.ID, 60))
		}
		return roster.Basket, strategies
	}

	log.Warn().Msg("chronotrader: no -roster supplied, using a single built-in momentum strategy over a default basket")
	return []string{"AAPL", "MSFT"}, []trading.Strategy{trading.NewMomentumStrategy("momentum-1", 60)}
}

// buildReplayClock pre-fetches every symbol's bars for [start, end] and
// merges them into one date-ordered Tick sequence (spec.md §4.4: "all
// strategies tick in lockstep against it").
func buildReplayClock(adapter domain.MarketDataAdapter, symbols []string, start, end time.Time) (*trading.ReplayClock, error) {
	byDate := make(map[string]map[string]domain.Bar)
	var order []string

	for _, symbol := range symbols {
		bars, err := adapter.GetBars(context.Background(), symbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("cmd/engine: fetch bars for %s: %w", symbol, err)
		}
		for _, bar := range bars {
			key := bar.Date.Format("2006-01-02")
			if _, ok := byDate[key]; !ok {
				byDate[key] = make(map[string]domain.Bar)
				order = append(order, key)
			}
			byDate[key][symbol] = bar
		}
	}

	sortStrings(order)

	ticks := make([]trading.Tick, 0, len(order))
	for _, key := range order {
		date, _ := time.Parse("2006-01-02", key)
		ticks = append(ticks, trading.Tick{Date: date, Bars: byDate[key]})
	}
	return trading.NewReplayClock(ticks), nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func statusRows(engine *trading.Engine, sup *trading.Supervisor, strategies []trading.Strategy) []trading.StrategyRow {
	status, restarts, _ := sup.Status()
	rows := make([]trading.StrategyRow, 0, len(strategies))
	for _, s := range strategies {
		broker, ok := engine.Broker(s.ID())
		if !ok {
			continue
		}
		curve := broker.EquityCurve()
		equity := broker.Cash()
		if len(curve) > 0 {
			equity = curve[len(curve)-1].TotalEquity
		}
		rows = append(rows, trading.StrategyRow{
			StrategyID:    s.ID(),
			Equity:        equity,
			PositionCount: len(broker.Positions()),
			RestartCount:  restarts,
			Status:        status,
		})
	}
	return rows
}
