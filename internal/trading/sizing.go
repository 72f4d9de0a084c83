package trading

import "math"

// lotSize is the China A-share minimum tradeable unit (spec.md §4.4.2/§4.4.3).
const lotSize = 100

// quantizeSell implements spec.md §4.4.3's sell-sizing algorithm: against a
// held quantity q of Q shares and a target_ratio r (a proportion, NEVER
// divided by 100 again), compute the lot-quantized share count to sell.
func quantizeSell(heldQuantity int, targetRatio float64) int {
	raw := float64(heldQuantity) * targetRatio
	q := int(math.Floor(raw/lotSize)) * lotSize
	if q < lotSize && raw > 0 {
		q = lotSize // honor intent: at least one lot
	}
	if q > heldQuantity {
		q = heldQuantity // never exceed the holding
	}
	return q
}

// quantizeBuy implements spec.md §4.4.3's buy-sizing algorithm: against
// available cash C, price P, and target_ratio r, compute the lot-quantized
// share count to buy.
func quantizeBuy(cash, price, targetRatio float64) int {
	if price <= 0 {
		return 0
	}
	raw := cash * targetRatio / price
	q := int(math.Floor(raw/lotSize)) * lotSize
	if q < lotSize && raw > 0 {
		q = lotSize
	}
	return q
}
