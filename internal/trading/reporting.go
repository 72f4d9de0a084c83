package trading

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"

	"github.com/aristath/chronotrader/pkg/logger"
)

// Reporter renders the engine's periodic human-readable status table to
// the log stream (spec.md has no REST surface, so there is no dashboard to
// push this to — grounded on AlejandroRuiz99-polybot's tablewriter-based
// CLI reporting).
type Reporter struct {
	log zerolog.Logger
}

// NewReporter builds a Reporter that writes to log.
func NewReporter(log zerolog.Logger) *Reporter {
	return &Reporter{log: logger.Component(log, "trading.reporter")}
}

// StrategyRow is one line of the status table.
type StrategyRow struct {
	StrategyID   string
	Equity       float64
	PositionCount int
	RestartCount int
	Status       SupervisorStatus
}

// Render formats rows into a bordered table and logs it at INFO.
func (r *Reporter) Render(rows []StrategyRow) {
	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Strategy", "Equity", "Positions", "Restarts", "Status"})
	for _, row := range rows {
		table.Append([]string{
			row.StrategyID,
			fmt.Sprintf("%.2f", row.Equity),
			fmt.Sprintf("%d", row.PositionCount),
			fmt.Sprintf("%d", row.RestartCount),
			string(row.Status),
		})
	}
	table.Render()
	r.log.Info().Msg("\n" + buf.String())
}
