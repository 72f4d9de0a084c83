// Package marketdata provides a local-file MarketDataAdapter so the trainer
// and engine binaries can run against recorded OHLCV history without a live
// vendor integration, which is out of scope for this module.
package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/chronotrader/internal/domain"
)

// CSVAdapter reads one CSV file per symbol from a directory, each file named
// "<symbol>.csv" with a header row of date,open,high,low,close,volume.
// Header names are matched case-insensitively; unknown columns are ignored.
type CSVAdapter struct {
	dir string
}

// NewCSVAdapter builds a CSVAdapter rooted at dir.
func NewCSVAdapter(dir string) *CSVAdapter {
	return &CSVAdapter{dir: dir}
}

// GetBars reads the symbol's CSV file and returns bars within [start, end],
// sorted ascending by date.
func (a *CSVAdapter) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(a.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("marketdata: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var headers []string
	var bars []domain.Bar
	rowIdx := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("marketdata: read %s: %w", path, err)
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[strings.ToLower(strings.TrimSpace(h))] = strings.TrimSpace(rec[i])
			}
		}
		bar, ok := parseRow(row)
		if !ok {
			continue
		}
		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func parseRow(row map[string]string) (domain.Bar, bool) {
	dateStr := firstNonEmpty(row, "date", "time", "timestamp")
	if dateStr == "" {
		return domain.Bar{}, false
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return domain.Bar{}, false
	}
	open, _ := strconv.ParseFloat(row["open"], 64)
	high, _ := strconv.ParseFloat(row["high"], 64)
	low, _ := strconv.ParseFloat(row["low"], 64)
	close, _ := strconv.ParseFloat(row["close"], 64)
	volume, _ := strconv.ParseFloat(row["volume"], 64)
	if close == 0 {
		return domain.Bar{}, false
	}
	return domain.Bar{Date: date, Open: open, High: high, Low: low, Close: close, Volume: volume}, true
}

func firstNonEmpty(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := row[k]; v != "" {
			return v
		}
	}
	return ""
}
