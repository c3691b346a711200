package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// StoragePlaces is the number of decimal places kept for every linear
// dimension (decimal(10,4) columns).
const StoragePlaces = 4

// DepthTolerance is the maximum allowed difference between a cabinet's total
// depth and the sum of its five depth terms.
const DepthTolerance = 0.0001

// StandardSlideLengths are the drawer slide lengths stocked by the shop, in inches, ascending.
var StandardSlideLengths = []float64{9, 12, 15, 18, 21}

// Round4 rounds an inch value to storage precision.
func Round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(StoragePlaces).InexactFloat64()
}

// Clamp limits v to [lo, hi]. If lo > hi the bounds are swapped.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// WithinTolerance reports whether a and b differ by less than tol.
func WithinTolerance(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}
