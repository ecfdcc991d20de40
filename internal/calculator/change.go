package calculator

import (
	"errors"

	"CoinDash/internal/model"
)

// CalculatePercentChange returns (last - first) / first * 100 over the given prices.
func CalculatePercentChange(prices []float64) (float64, error) {
	if len(prices) == 0 {
		return 0, model.ErrInsufficientData
	}
	first := prices[0]
	if first == 0 {
		return 0, errors.New("first price is zero")
	}
	last := prices[len(prices)-1]
	return (last - first) / first * 100, nil
}

// TrailingWindow returns the last n prices, or all of them when fewer are available.
func TrailingWindow(prices []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(prices) <= n {
		return prices
	}
	return prices[len(prices)-n:]
}

// WindowChange computes the percentage change over the trailing window of the series.
// It returns nil when the series has fewer points than the window requires.
func WindowChange(series model.PriceSeries, window int) *float64 {
	if window <= 0 || series.Len() < window {
		return nil
	}
	pct, err := CalculatePercentChange(TrailingWindow(series.Prices(), window))
	if err != nil {
		return nil
	}
	return &pct
}
