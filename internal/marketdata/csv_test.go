package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, symbol, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, symbol+".csv"), []byte(body), 0o644))
}

func TestCSVAdapter_GetBars_ParsesAndFilters(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAPL", "date,open,high,low,close,volume\n"+
		"2024-06-01,100,101,99,100.5,1000\n"+
		"2024-06-02,100.5,102,100,101.5,1100\n"+
		"2024-06-03,101.5,103,101,102.5,1200\n")

	adapter := NewCSVAdapter(dir)
	bars, err := adapter.GetBars(context.Background(),
		"AAPL",
		time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 101.5, bars[0].Close)
	assert.Equal(t, 102.5, bars[1].Close)
	assert.True(t, bars[0].Date.Before(bars[1].Date))
}

func TestCSVAdapter_GetBars_MissingFileErrors(t *testing.T) {
	adapter := NewCSVAdapter(t.TempDir())
	_, err := adapter.GetBars(context.Background(), "NOPE", time.Now(), time.Now())
	assert.Error(t, err)
}

func TestCSVAdapter_GetBars_SkipsUnparseableRows(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "MSFT", "date,open,high,low,close,volume\n"+
		"not-a-date,1,2,3,4,5\n"+
		"2024-06-01,100,101,99,100.5,1000\n")

	adapter := NewCSVAdapter(dir)
	bars, err := adapter.GetBars(context.Background(),
		"MSFT",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 100.5, bars[0].Close)
}
