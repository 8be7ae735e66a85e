package sheet

import "github.com/shopspring/decimal"

// Cost returns consumption*rate rounded half away from zero to two places,
// formatted with exactly two decimals
func Cost(consumption, rate float64) string {
	return decimal.NewFromFloat(consumption).
		Mul(decimal.NewFromFloat(rate)).
		StringFixed(2)
}
