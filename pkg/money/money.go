package money

import (
	"github.com/shopspring/decimal"
)

// Tolerance is the maximum acceptable difference when comparing two
// aggregated amounts (cash + cliq vs collected).
var Tolerance = decimal.NewFromFloat(0.01)

var hundred = decimal.NewFromInt(100)

// Round2 applies the global rounding policy: half-up, 2 decimal places.
// All monetary values exposed outside the aggregation pipeline must pass
// through here exactly once; intermediate sums stay unrounded.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CollectionRate returns collected/expected*100 rounded to 2 decimals.
// A day with nothing expected counts as fully collected (100.00), even
// when nothing was collected either. This is a reporting policy, not a
// limit of the math.
func CollectionRate(expected, collected decimal.Decimal) decimal.Decimal {
	if expected.IsZero() {
		return hundred
	}
	return Round2(collected.Div(expected).Mul(hundred))
}

// Shortage returns max(0, expected - collected).
func Shortage(expected, collected decimal.Decimal) decimal.Decimal {
	diff := expected.Sub(collected)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// Overage returns max(0, collected - expected).
func Overage(expected, collected decimal.Decimal) decimal.Decimal {
	diff := collected.Sub(expected)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// WithinTolerance reports whether a and b differ by at most Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(Tolerance) <= 0
}
