package trainer

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/aristath/chronotrader/internal/domain"
)

// exportRecord is one JSON Lines row spec.md §4.5 defines: instruction/
// input/output/metadata, where output contains only decision-time text —
// this enables supervised-finetuning of smaller models on the trainer's
// outputs (spec.md: "enable_small_model_routing").
type exportRecord struct {
	Instruction string                 `json:"instruction"`
	Input       string                 `json:"input"`
	Output      string                 `json:"output"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// Exporter appends one exportRecord per committed episode to a JSONL file.
// A single *os.File is shared and guarded by a mutex since the portfolio
// loop and single-symbol loop may both append concurrently in a multi-
// trainer deployment.
type Exporter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// OpenExporter opens the JSONL file at path for appending, creating it if needed. The
// format spec.md names is literally JSON Lines — newline-delimited
// `json.Marshal` output requires no third-party library.
func OpenExporter(path string) (*Exporter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trainer: open export file %s: %w", path, err)
	}
	return &Exporter{file: f, enc: json.NewEncoder(f)}, nil
}

// Append writes one instruction-tuning row derived from ep. The instruction
// is a fixed task description; input is the decision_context text; output
// is the final action the analyser chose, expressed only in decision-time
// terms (never the realized return).
func (e *Exporter) Append(ep domain.TradingEpisode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	record := exportRecord{
		Instruction: "Given the market state and prior agent analyses, decide the trading action.",
		Input:       ep.DecisionContext,
		Output:      string(ep.DecisionChain.FinalAction),
		Metadata: map[string]interface{}{
			"episode_id": ep.EpisodeID,
			"symbol":     ep.Symbol,
			"date":       dateKey(ep.Date),
		},
	}
	if err := e.enc.Encode(record); err != nil {
		return fmt.Errorf("trainer: write export record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (e *Exporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.file.Close()
}
