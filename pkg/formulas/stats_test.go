package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanStdDev(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 3.0, Mean(data), 1e-9)
	assert.Greater(t, StdDev(data), 0.0)
	assert.Equal(t, 0.0, StdDev([]float64{1}))
}

func TestReturns(t *testing.T) {
	prices := []float64{100, 110, 99}
	r := Returns(prices)
	assert.Len(t, r, 2)
	assert.InDelta(t, 0.10, r[0], 1e-9)
	assert.InDelta(t, -0.10, r[1], 1e-9)
}

func TestMaxDrawdown(t *testing.T) {
	curve := []float64{100, 120, 90, 110, 80, 130}
	// peak 120 -> trough 80 => (120-80)/120
	assert.InDelta(t, (120.0-80.0)/120.0, MaxDrawdown(curve), 1e-9)
}

func TestCAGR(t *testing.T) {
	c := CAGR(100, 200, 1)
	assert.InDelta(t, 1.0, c, 1e-9)

	assert.Equal(t, 0.0, CAGR(0, 200, 1))
	assert.Equal(t, 0.0, CAGR(100, 200, 0))
}

func TestSharpeRatio(t *testing.T) {
	rets := []float64{0.01, -0.005, 0.02, 0.0, 0.015}
	s := SharpeRatio(rets, 0.02)
	assert.NotEqual(t, 0.0, s)
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01}, 0.02))
}
