package model

import "time"

// ChangeMetrics holds multi-window percentage changes for one asset.
// A nil window means the series was too short for it, which is not the same as 0%.
type ChangeMetrics struct {
	Symbol string   `json:"symbol"`
	Name   string   `json:"name"`
	Pct24h *float64 `json:"pct_24h"`
	Pct7d  *float64 `json:"pct_7d"`
	Pct30d *float64 `json:"pct_30d"`
	Pct60d *float64 `json:"pct_60d"`
}

// ChangeTable is the result of one change-table pass.
// Rows follow the provider ranking; Failed counts assets dropped because their history fetch failed.
type ChangeTable struct {
	Rows      []ChangeMetrics `json:"rows"`
	Requested int             `json:"requested"`
	Failed    int             `json:"failed"`
	Dropped   []string        `json:"dropped,omitempty"`
}

// OthersLabel is the label of the synthetic bucket aggregating everything outside the top-N.
const OthersLabel = "OTHERS"

// CompositionBucket is one slice of the market-cap composition.
// The display fields are rounded to 2 decimals; the collaborator renders the text.
type CompositionBucket struct {
	Label        string   `json:"label"`
	Name         string   `json:"name"`
	Rank         int      `json:"rank,omitempty"`
	MarketCapUSD *float64 `json:"market_cap_usd"`
	Others       bool     `json:"others"`

	MarketCapBillions *float64 `json:"market_cap_billions"`
	PriceUSD          *float64 `json:"price_usd,omitempty"`
	ChangePercent24h  *float64 `json:"change_percent_24h,omitempty"`
	VolumeMillions24h *float64 `json:"volume_millions_24h,omitempty"`
}

// MarketComposition is the top-N buckets plus one OTHERS bucket.
// The bucket values add up to TotalMarketCapUSD. It is a pure function of the
// snapshots; the time of a pass is stamped by the caller.
type MarketComposition struct {
	Buckets                []CompositionBucket `json:"buckets"`
	TopN                   int                 `json:"top_n"`
	TotalMarketCapUSD      float64             `json:"total_market_cap_usd"`
	TotalMarketCapBillions float64             `json:"total_market_cap_billions"`
}

// Empty reports whether the composition carries no buckets.
func (c MarketComposition) Empty() bool { return len(c.Buckets) == 0 }

// MarketTableRow is one row of the top assets table.
type MarketTableRow struct {
	Rank              int      `json:"rank"`
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	PriceUSD          *float64 `json:"price_usd"`
	MarketCapBillions *float64 `json:"market_cap_billions"`
	VolumeMillions24h *float64 `json:"volume_millions_24h"`
	ChangePercent24h  *float64 `json:"change_percent_24h"`
}

// VolumeEntry is one bar of the 24h volume ranking.
type VolumeEntry struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	VolumeUSD24h *float64 `json:"volume_usd_24h"`
}

// PriceChart is an OHLC series resolved from a (symbol, period) request.
// FocusStart..FocusEnd is the window the chart should initially show.
type PriceChart struct {
	Symbol             string    `json:"symbol"`
	PairKey            string    `json:"pair_key"`
	Period             string    `json:"period"`
	GranularityMinutes int       `json:"granularity_minutes"`
	LookbackDays       int       `json:"lookback_days"`
	FocusStart         time.Time `json:"focus_start"`
	FocusEnd           time.Time `json:"focus_end"`
	Bars               []OHLCBar `json:"bars"`
}

// Dashboard is everything one refresh pass produces.
type Dashboard struct {
	RunID       string            `json:"run_id"`
	Composition MarketComposition `json:"composition"`
	MarketTable []MarketTableRow  `json:"market_table"`
	Volumes     []VolumeEntry     `json:"volumes"`
	Changes     ChangeTable       `json:"changes"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
