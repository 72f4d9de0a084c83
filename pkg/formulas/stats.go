// Package formulas holds the small statistical helpers shared by the
// trading engine's performance tracker and the trainer's outcome
// computation. Adapted from the teacher's pkg/formulas (stats.go, cagr.go),
// generalized from portfolio-level reporting to per-strategy tracking.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of data, or 0 for an empty slice.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev returns the sample standard deviation of data, or 0 for fewer than
// two points.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// AnnualizedVolatility scales a slice of daily returns to an annualized
// figure using the standard 252-trading-day convention.
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(252)
}

// Returns converts a price series into percentage returns; Returns[i] is the
// return from prices[i] to prices[i+1].
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			out[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return out
}

// SharpeRatio computes an annualized Sharpe ratio from daily returns given an
// annual risk-free rate. Returns 0 when volatility is zero.
func SharpeRatio(dailyReturns []float64, riskFreeAnnual float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	vol := AnnualizedVolatility(dailyReturns)
	if vol == 0 {
		return 0
	}
	meanDaily := Mean(dailyReturns)
	annualizedReturn := meanDaily * 252
	return (annualizedReturn - riskFreeAnnual) / vol
}

// MaxDrawdown returns the largest peak-to-trough decline in an equity curve,
// expressed as a positive fraction (0.2 == a 20% drawdown).
func MaxDrawdown(equityCurve []float64) float64 {
	if len(equityCurve) == 0 {
		return 0
	}
	peak := equityCurve[0]
	maxDD := 0.0
	for _, v := range equityCurve {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// CAGR computes the compound annual growth rate between the first and last
// value of a series spanning the given number of years. Returns 0 when
// either endpoint is non-positive or years <= 0.
func CAGR(start, end, years float64) float64 {
	if start <= 0 || end <= 0 || years <= 0 {
		return 0
	}
	if years < 0.25 {
		return end/start - 1
	}
	return math.Pow(end/start, 1/years) - 1
}
