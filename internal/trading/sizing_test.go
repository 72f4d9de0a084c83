package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantizeSell_HalfPosition(t *testing.T) {
	assert.Equal(t, 300, quantizeSell(600, 0.5))
}

func TestQuantizeSell_HonorsMinimumOneLot(t *testing.T) {
	assert.Equal(t, 100, quantizeSell(150, 0.1))
}

func TestQuantizeSell_NeverExceedsHolding(t *testing.T) {
	assert.Equal(t, 100, quantizeSell(100, 1.5))
}

func TestQuantizeSell_ZeroRatioYieldsZero(t *testing.T) {
	assert.Equal(t, 0, quantizeSell(500, 0))
}

func TestQuantizeBuy_HalfCash(t *testing.T) {
	// cash=10000, price=10, ratio=0.5 -> raw=500 shares -> 500 (multiple of 100)
	assert.Equal(t, 500, quantizeBuy(10000, 10, 0.5))
}

func TestQuantizeBuy_HonorsMinimumOneLot(t *testing.T) {
	// cash=1000, price=50, ratio=0.2 -> raw = 1000*0.2/50 = 4 shares, rounds up to 100
	assert.Equal(t, 100, quantizeBuy(1000, 50, 0.2))
}

func TestQuantizeBuy_ZeroPriceIsSafe(t *testing.T) {
	assert.Equal(t, 0, quantizeBuy(1000, 0, 0.5))
}
