package calculator

import "github.com/shopspring/decimal"

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Scaled divides v by div and rounds to two decimals. A nil value stays nil.
func Scaled(v *float64, div float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round2(*v / div)
	return &r
}
