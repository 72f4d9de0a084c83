package trainer

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/chronotrader/internal/domain"
)

func TestExporter_Append_WritesReadableJSONLRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.jsonl")
	exp, err := OpenExporter(path)
	require.NoError(t, err)

	ep1 := domain.TradingEpisode{
		EpisodeID:       "ep-1",
		Symbol:          "AAPL",
		Date:            time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		DecisionContext: "price is up",
		DecisionChain:   domain.DecisionChain{FinalAction: domain.ActionBuy},
	}
	ep2 := domain.TradingEpisode{
		EpisodeID:       "ep-2",
		Symbol:          "MSFT",
		Date:            time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		DecisionContext: "price is flat",
		DecisionChain:   domain.DecisionChain{FinalAction: domain.ActionHold},
	}
	require.NoError(t, exp.Append(ep1))
	require.NoError(t, exp.Append(ep2))
	require.NoError(t, exp.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var rows []exportRecord
	for scanner.Scan() {
		var row exportRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		rows = append(rows, row)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, rows, 2)

	assert.Equal(t, "price is up", rows[0].Input)
	assert.Equal(t, string(domain.ActionBuy), rows[0].Output)
	assert.Equal(t, "ep-1", rows[0].Metadata["episode_id"])
	assert.Equal(t, "AAPL", rows[0].Metadata["symbol"])

	assert.Equal(t, "price is flat", rows[1].Input)
	assert.Equal(t, string(domain.ActionHold), rows[1].Output)
}

func TestExporter_Append_NeverLeaksRealizedOutcome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.jsonl")
	exp, err := OpenExporter(path)
	require.NoError(t, err)

	ep := domain.TradingEpisode{
		EpisodeID:       "ep-1",
		Symbol:          "AAPL",
		Date:            time.Now(),
		DecisionContext: "momentum looks favorable",
		DecisionChain:   domain.DecisionChain{FinalAction: domain.ActionBuy},
		OutcomeResult:   "return was +12.34%",
	}
	require.NoError(t, exp.Append(ep))
	require.NoError(t, exp.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "12.34", "exported rows must never carry realized-outcome text, only decision-time text")
}
