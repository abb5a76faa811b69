package models

import (
	"math"
	"math/bits"
)

// LineValue returns quantity*unit. It reports false when either factor is
// negative or the product does not fit in an int64.
func LineValue(quantity int, unit int64) (int64, bool) {
	if quantity < 0 || unit < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(quantity), uint64(unit))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

// ItemsValue sums the line values of items, reporting false on overflow.
func ItemsValue(items []DonationItem) (int64, bool) {
	var total int64
	for _, item := range items {
		v, ok := LineValue(item.Quantity, item.EstimatedValue)
		if !ok || v > math.MaxInt64-total {
			return 0, false
		}
		total += v
	}
	return total, true
}
