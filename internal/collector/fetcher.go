package collector

import (
	"context"
	"time"

	"CoinDash/internal/model"
)

// IndexProvider supplies ranked market snapshots and daily price history.
type IndexProvider interface {
	ListRankedAssets(ctx context.Context, limit int) ([]model.MarketSnapshot, error)
	FetchHistoricalSeries(ctx context.Context, assetID string, days int) (model.PriceSeries, error)
	Name() string
}

// ExchangeProvider supplies tradable pairs and OHLC candles.
type ExchangeProvider interface {
	ListTradingPairs(ctx context.Context, quote string) (map[string]string, error)
	FetchOHLC(ctx context.Context, pairKey string, granularityMinutes int) ([]model.OHLCBar, error)
	ResolveFirstTradeDate(ctx context.Context, pairKey string) (time.Time, bool)
	Name() string
}
