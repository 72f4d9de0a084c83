// Command trainer runs the Time-Travel Trainer: it replays recorded market
// data through a historical decision loop, consults the episodic memory
// store for similar past episodes, and commits one realized-outcome episode
// per trading day, optionally exporting a JSONL fine-tuning dataset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/aristath/chronotrader/internal/analyser"
	"github.com/aristath/chronotrader/internal/config"
	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/events"
	"github.com/aristath/chronotrader/internal/marketdata"
	"github.com/aristath/chronotrader/internal/memory"
	"github.com/aristath/chronotrader/internal/taskmonitor"
	"github.com/aristath/chronotrader/internal/timeoutcache"
	"github.com/aristath/chronotrader/internal/trainer"
	"github.com/aristath/chronotrader/pkg/logger"
)

const embeddingDimension = 1536
const embeddingTokenLimit = 8191

func main() {
	symbolFlag := flag.String("symbol", "", "single symbol to train on (mutually exclusive with -basket)")
	basketFlag := flag.String("basket", "", "comma-separated basket of symbols for a shared-cash-pool run")
	marketDir := flag.String("market-data", "", "directory of <symbol>.csv OHLCV files")
	startFlag := flag.String("start", "", "training window start, YYYY-MM-DD (required)")
	endFlag := flag.String("end", "", "training window end, YYYY-MM-DD (required)")
	exportPath := flag.String("export", "", "path to write a JSONL fine-tuning dataset (optional)")
	maintenanceCron := flag.String("maintenance-cron", "0 0 * * * *", "cron schedule for disk-cache GC and the stale-checkpoint sweep")
	flag.Parse()

	log := logger.New(logger.Config{Level: "info", Pretty: true})
	log.Info().Msg("chronotrader: starting trainer")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("chronotrader: failed to load configuration")
	}
	if cfg.MemoryMode != config.ModeTraining {
		log.Fatal().Str("mode", string(cfg.MemoryMode)).Msg("chronotrader: trainer requires CHRONOTRADER_MEMORY_MODE=TRAINING")
	}

	start, end, err := parseWindow(*startFlag, *endFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("chronotrader: invalid training window")
	}

	dataDir := *marketDir
	if dataDir == "" {
		dataDir = filepath.Join(cfg.DataDir, "market_data")
	}
	adapter := marketdata.NewCSVAdapter(dataDir)

	em := events.NewManager()

	disk, err := timeoutcache.OpenDiskTier(filepath.Join(cfg.DataDir, "cache"))
	if err != nil {
		log.Fatal().Err(err).Msg("chronotrader: failed to open disk cache")
	}
	cache := timeoutcache.NewCache(log, disk, 4096, time.Duration(cfg.CacheTTLS)*time.Second)

	index, err := memory.OpenVectorIndex(filepath.Join(cfg.DataDir, "episodes.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("chronotrader: failed to open vector index")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal().Msg("chronotrader: OPENAI_API_KEY is required to embed episodes")
	}
	embedder := memory.NewOpenAIEmbedder(apiKey, openai.SmallEmbedding3, embeddingDimension, embeddingTokenLimit)
	store := memory.NewStore(cfg.MemoryMode, embedder, index, cache, em, log)

	checkpointStore, err := taskmonitor.OpenCheckpointStore(filepath.Join(cfg.DataDir, "results", "checkpoints"))
	if err != nil {
		log.Fatal().Err(err).Msg("chronotrader: failed to open checkpoint store")
	}
	monitor := taskmonitor.NewMonitor(checkpointStore, em, log)

	var exporter *trainer.Exporter
	if *exportPath != "" {
		exporter, err = trainer.OpenExporter(*exportPath)
		if err != nil {
			log.Fatal().Err(err).Msg("chronotrader: failed to open export file")
		}
	}

	analyse := domain.MultiAgentAnalyser(analyser.New(buildRouter(log, cfg, apiKey)).Analyse)

	maintenance := trainer.NewMaintenance(disk, checkpointStore, log)
	if err := maintenance.Start(*maintenanceCron); err != nil {
		log.Fatal().Err(err).Msg("chronotrader: failed to start maintenance scheduler")
	}
	defer maintenance.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("chronotrader: shutdown signal received, finishing current step")
		cancel()
	}()

	switch {
	case *basketFlag != "":
		symbols := splitBasket(*basketFlag)
		runBasket(ctx, log, symbols, cfg, adapter, store, monitor, analyse, exporter, start, end)
	case *symbolFlag != "":
		runSingle(ctx, log, strings.ToUpper(*symbolFlag), cfg, adapter, store, monitor, analyse, exporter, start, end)
	default:
		log.Fatal().Msg("chronotrader: one of -symbol or -basket is required")
	}

	log.Info().Msg("chronotrader: trainer stopped")
}

func runSingle(ctx context.Context, log zerolog.Logger, symbol string, cfg *config.Config, adapter domain.MarketDataAdapter, store *memory.Store, monitor *taskmonitor.Monitor, analyse domain.MultiAgentAnalyser, exporter *trainer.Exporter, start, end time.Time) {
	taskID := fmt.Sprintf("trainer-%s-%s-%s", symbol, start.Format("20060102"), end.Format("20060102"))
	tr := trainer.NewTrainer(symbol, cfg, adapter, store, monitor, analyse, exporter, log)
	committed, err := tr.Run(ctx, taskID, start, end)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Int("committed", committed).Msg("chronotrader: trainer run failed")
		return
	}
	log.Info().Str("symbol", symbol).Int("committed", committed).Msg("chronotrader: trainer run complete")
}

func runBasket(ctx context.Context, log zerolog.Logger, symbols []string, cfg *config.Config, adapter domain.MarketDataAdapter, store *memory.Store, monitor *taskmonitor.Monitor, analyse domain.MultiAgentAnalyser, exporter *trainer.Exporter, start, end time.Time) {
	taskID := fmt.Sprintf("trainer-basket-%s-%s", start.Format("20060102"), end.Format("20060102"))
	bt, err := trainer.NewBasketTrainer(ctx, symbols, cfg, adapter, store, monitor, analyse, exporter, start, end, log)
	if err != nil {
		log.Fatal().Err(err).Msg("chronotrader: failed to build basket trainer")
	}
	committed, err := bt.Run(ctx, taskID, start, end)
	if err != nil {
		log.Error().Err(err).Strs("basket", symbols).Int("committed", committed).Msg("chronotrader: basket trainer run failed")
		return
	}
	log.Info().Strs("basket", symbols).Int("committed", committed).Msg("chronotrader: basket trainer run complete")
}

func parseWindow(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("both -start and -end are required")
	}
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse -start: %w", err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse -end: %w", err)
	}
	if !e.After(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("-end must be after -start")
	}
	return s, e, nil
}

func splitBasket(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			symbols = append(symbols, strings.ToUpper(p))
		}
	}
	return symbols
}

// buildRouter wires an OpenAIRouter when small-model routing is enabled,
// otherwise returns nil so analyser.Default falls back to its conservative
// hold-only path. spec.md's enable_small_model_routing is the switch that
// decides whether the trainer consults an LLM at all during a run.
func buildRouter(log zerolog.Logger, cfg *config.Config, apiKey string) domain.LLMRouter {
	if !cfg.EnableSmallModelRouting {
		log.Warn().Msg("chronotrader: small-model routing disabled, trainer will hold on every step")
		return nil
	}
	return analyser.NewOpenAIRouter(apiKey, nil)
}
