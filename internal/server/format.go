package server

import (
	"fmt"
	"strings"
	"time"

	"CoinDash/internal/calculator"
	"CoinDash/internal/model"
)

func money(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f%s", *v, unit)
}

func percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

// FormatBucketSummary renders the hover text of one composition bucket.
func FormatBucketSummary(b model.CompositionBucket) string {
	if b.Others {
		return fmt.Sprintf("%s\nTotal Market Cap: %s", b.Name, money(b.MarketCapBillions, "B"))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name: %s\n", b.Name))
	sb.WriteString(fmt.Sprintf("Market Cap: %s\n", money(b.MarketCapBillions, "B")))
	sb.WriteString(fmt.Sprintf("Price: %s\n", money(b.PriceUSD, "")))
	sb.WriteString(fmt.Sprintf("24h Change: %s\n", percent(b.ChangePercent24h)))
	sb.WriteString(fmt.Sprintf("24h Volume: %s", money(b.VolumeMillions24h, "M")))
	return sb.String()
}

// FormatCompositionTitle renders the chart heading with the total market cap.
func FormatCompositionTitle(c model.MarketComposition, at time.Time) string {
	return fmt.Sprintf("Market Cap Distribution, Top %d + Others\nTotal Market Cap: $%.2fB\n%s",
		c.TopN, c.TotalMarketCapBillions, at.Format("2006-01-02 15:04:05"))
}

// ChangeRow is a change-table row rounded for display.
type ChangeRow struct {
	Symbol string   `json:"symbol"`
	Name   string   `json:"name"`
	Pct24h *float64 `json:"pct_24h"`
	Pct7d  *float64 `json:"pct_7d"`
	Pct30d *float64 `json:"pct_30d"`
	Pct60d *float64 `json:"pct_60d"`
}

// RoundChanges rounds every window to two decimals. Missing windows stay nil.
func RoundChanges(rows []model.ChangeMetrics) []ChangeRow {
	out := make([]ChangeRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, ChangeRow{
			Symbol: strings.ToUpper(r.Symbol),
			Name:   r.Name,
			Pct24h: calculator.Scaled(r.Pct24h, 1),
			Pct7d:  calculator.Scaled(r.Pct7d, 1),
			Pct30d: calculator.Scaled(r.Pct30d, 1),
			Pct60d: calculator.Scaled(r.Pct60d, 1),
		})
	}
	return out
}
