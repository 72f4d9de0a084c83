package trainer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aristath/chronotrader/internal/config"
	"github.com/aristath/chronotrader/internal/domain"
	"github.com/aristath/chronotrader/internal/memory"
	"github.com/aristath/chronotrader/internal/taskmonitor"
)

// fakeAdapter serves a synthetic, strictly increasing daily-close series for
// whichever symbols it is asked about, one bar per calendar day in range
// (weekends included for simplicity — tests only care about relative
// ordering, not a real trading calendar).
type fakeAdapter struct {
	startPrice float64
	step       float64
}

func (f *fakeAdapter) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	price := f.startPrice
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		bars = append(bars, domain.Bar{Date: d, Open: price, High: price, Low: price, Close: price, Volume: 1000})
		price += f.step
	}
	return bars, nil
}

// fakeEmbedder is a deterministic, always-succeeding embedding backend.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	vec := make([]float64, 8)
	for i, c := range text {
		vec[i%8] += float64(c)
	}
	return vec, nil
}
func (f *fakeEmbedder) Dimension() int  { return 8 }
func (f *fakeEmbedder) TokenLimit() int { return 4000 }

// alwaysBuy is a MultiAgentAnalyser that always recommends a small buy with
// a trivial decision chain and a single agent opinion.
func alwaysBuy(ctx context.Context, symbol string, date time.Time, decisionContext string, similar []domain.TradingEpisode) (map[string]domain.AgentAnalysis, domain.DecisionChain, domain.Decision, error) {
	analyses := map[string]domain.AgentAnalysis{
		"trend": {AgentName: "trend", Direction: domain.DirectionLong, Confidence: 0.8, Reasoning: "uptrend"},
	}
	chain := domain.DecisionChain{BullArgument: "momentum is positive", BearArgument: "none", JudgeDecision: "buy", RiskDecision: "approved", FinalAction: domain.ActionBuy}
	decision := domain.Decision{Action: domain.ActionBuy, TargetRatio: 0.3}
	return analyses, chain, decision, nil
}

// alwaysHold never opens a position.
func alwaysHold(ctx context.Context, symbol string, date time.Time, decisionContext string, similar []domain.TradingEpisode) (map[string]domain.AgentAnalysis, domain.DecisionChain, domain.Decision, error) {
	chain := domain.DecisionChain{JudgeDecision: "hold", FinalAction: domain.ActionHold}
	return nil, chain, domain.Decision{Action: domain.ActionHold}, nil
}

func newTestStore(t *testing.T, mode config.MemoryMode) *memory.Store {
	t.Helper()
	dir := t.TempDir()
	idx, err := memory.OpenVectorIndex(filepath.Join(dir, "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return memory.NewStore(mode, &fakeEmbedder{}, idx, nil, nil, zerolog.Nop())
}

func newTestMonitor(t *testing.T) *taskmonitor.Monitor {
	t.Helper()
	dir := t.TempDir()
	store, err := taskmonitor.OpenCheckpointStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return taskmonitor.NewMonitor(store, nil, zerolog.Nop())
}

func newTestConfig(holdingDays, maxPositions int, positionSize, initialCash float64) *config.Config {
	return &config.Config{
		HoldingDays:  holdingDays,
		MaxPositions: maxPositions,
		PositionSize: positionSize,
		InitialCash:  initialCash,
		MemoryMode:   config.ModeTraining,
	}
}

func uniqueTaskID(t *testing.T) string {
	return fmt.Sprintf("test-%s", t.Name())
}
