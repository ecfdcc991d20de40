package model

import "time"

// Asset identifies a cryptocurrency tracked by the index provider.
// ID is the provider-internal key used for history lookups, Symbol the display key.
type Asset struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// PricePoint is one sample of a historical price series.
type PricePoint struct {
	Time     time.Time `json:"time"`
	PriceUSD float64   `json:"price_usd"`
}

// PriceSeries holds daily prices for one asset, ascending by time.
// An empty series is valid.
type PriceSeries struct {
	AssetID string       `json:"asset_id"`
	Points  []PricePoint `json:"points"`
}

// Prices returns the price column of the series.
func (s PriceSeries) Prices() []float64 {
	prices := make([]float64, len(s.Points))
	for i, p := range s.Points {
		prices[i] = p.PriceUSD
	}
	return prices
}

// Len returns the number of points.
func (s PriceSeries) Len() int { return len(s.Points) }

// MarketSnapshot is one ranked asset as reported by the index provider.
// Numeric fields are nil when the provider value is missing or unparsable.
type MarketSnapshot struct {
	Asset
	Rank             int      `json:"rank"`
	PriceUSD         *float64 `json:"price_usd"`
	MarketCapUSD     *float64 `json:"market_cap_usd"`
	VolumeUSD24h     *float64 `json:"volume_usd_24h"`
	ChangePercent24h *float64 `json:"change_percent_24h"`
}

// OHLCBar is one exchange candle.
type OHLCBar struct {
	Time       time.Time `json:"time"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	VWAP       float64   `json:"vwap"`
	Volume     float64   `json:"volume"`
	TradeCount int64     `json:"trade_count"`
}

// TradingPair is an exchange instrument quoted in some currency.
type TradingPair struct {
	PairKey       string `json:"pair_key"`
	BaseAsset     string `json:"base_asset"`
	QuoteCurrency string `json:"quote_currency"`
}

// PeriodSpec maps a named chart period to a candle granularity and lookback.
// A nil LookbackDays is resolved from the pair's first trade date.
type PeriodSpec struct {
	Name               string `json:"name"`
	GranularityMinutes int    `json:"granularity_minutes"`
	LookbackDays       *int   `json:"lookback_days"`
}
