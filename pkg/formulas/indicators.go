package formulas

import "github.com/markcheno/go-talib"

// Indicators is the last-bar snapshot of the technical indicators the
// trainer and engine attach to a MarketState (spec.md §3: rsi/macd/ma).
type Indicators struct {
	RSI14  float64
	MACD   float64
	Signal float64
	MA20   float64
	MA50   float64
}

// LastIndicators computes RSI(14), MACD(12,26,9), and simple moving averages
// (20, 50) over a closing-price series and returns only the final value of
// each — the snapshot for the most recent bar in closes. Series shorter than
// a given indicator's warm-up period leave that field at zero.
//
// closes must be ordered oldest-to-newest, which is how the Trainer's
// batched pre-load indexes a symbol's history (spec.md §4.5).
func LastIndicators(closes []float64) Indicators {
	var out Indicators
	if len(closes) == 0 {
		return out
	}

	if rsi := talib.Rsi(closes, 14); len(rsi) > 0 {
		out.RSI14 = rsi[len(rsi)-1]
	}
	if macd, signal, _ := talib.Macd(closes, 12, 26, 9); len(macd) > 0 {
		out.MACD = macd[len(macd)-1]
		out.Signal = signal[len(signal)-1]
	}
	if ma20 := talib.Sma(closes, 20); len(ma20) > 0 {
		out.MA20 = ma20[len(ma20)-1]
	}
	if ma50 := talib.Sma(closes, 50); len(ma50) > 0 {
		out.MA50 = ma50[len(ma50)-1]
	}
	return out
}
