package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinDash/internal/model"
)

func seriesOf(prices ...float64) model.PriceSeries {
	s := model.PriceSeries{AssetID: "test"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		s.Points = append(s.Points, model.PricePoint{Time: start.AddDate(0, 0, i), PriceUSD: p})
	}
	return s
}

func TestCalculatePercentChange(t *testing.T) {
	tests := []struct {
		name    string
		prices  []float64
		want    float64
		wantErr bool
	}{
		{"rise", []float64{100, 120, 150}, 50, false},
		{"fall", []float64{200, 150}, -25, false},
		{"flat single point", []float64{42}, 0, false},
		{"empty", nil, 0, true},
		{"zero first price", []float64{0, 10}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculatePercentChange(tt.prices)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCalculatePercentChange_EmptyIsInsufficientData(t *testing.T) {
	_, err := CalculatePercentChange(nil)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestTrailingWindow(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, []float64{3, 4, 5}, TrailingWindow(prices, 3))
	assert.Equal(t, prices, TrailingWindow(prices, 10))
	assert.Nil(t, TrailingWindow(prices, 0))
}

func TestWindowChange(t *testing.T) {
	prices := make([]float64, 90)
	for i := range prices {
		prices[i] = float64(100 + i)
	}
	s := seriesOf(prices...)

	for _, w := range []int{7, 30, 60} {
		got := WindowChange(s, w)
		require.NotNil(t, got, "window %d", w)
		first := prices[len(prices)-w]
		last := prices[len(prices)-1]
		assert.InDelta(t, (last-first)/first*100, *got, 1e-9, "window %d", w)
	}
}

func TestWindowChange_ShortSeriesIsNil(t *testing.T) {
	s := seriesOf(10, 11, 12, 13, 14, 15)
	assert.Nil(t, WindowChange(s, 7))
	assert.Nil(t, WindowChange(model.PriceSeries{}, 7))
	assert.Nil(t, WindowChange(s, 0))
	assert.NotNil(t, WindowChange(s, 6))
}

func TestWindowChange_ZeroBaseIsNil(t *testing.T) {
	s := seriesOf(0, 1, 2)
	assert.Nil(t, WindowChange(s, 3))
	got := WindowChange(s, 2)
	require.NotNil(t, got)
	assert.False(t, math.IsInf(*got, 0))
	assert.InDelta(t, 100, *got, 1e-9)
}

func TestDaysBetween(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2556, DaysBetween(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 0, DaysBetween(now, now))
	assert.Equal(t, 0, DaysBetween(now.Add(time.Hour), now))
	assert.Equal(t, 1, DaysBetween(now.Add(-47*time.Hour), now))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, -1.01, Round2(-1.005))
	assert.Equal(t, 42000.46, Round2(42000.456))
	assert.Nil(t, Scaled(nil, 1e9))
	v := 1234567890123.0
	assert.Equal(t, 1234.57, *Scaled(&v, 1e9))
}
