package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CoinDash/internal/model"
)

// MockIndexProvider returns controllable fixed data for development and testing.
// It is safe for concurrent use.
type MockIndexProvider struct {
	Snapshots  []model.MarketSnapshot
	Series     map[string]model.PriceSeries
	ListErr    error
	HistoryErr map[string]error
	Delay      map[string]time.Duration // per asset id

	mu    sync.Mutex
	calls map[string]int
}

// NewMockIndexProvider generates n ranked assets with 90 days of history each.
func NewMockIndexProvider(n int, now time.Time) *MockIndexProvider {
	m := &MockIndexProvider{Series: make(map[string]model.PriceSeries, n)}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("coin-%d", i+1)
		base := 1000.0 / float64(i+1)
		snapCap := base * 1e9
		vol := base * 1e7
		chg := float64(i%5) - 2
		price := base
		m.Snapshots = append(m.Snapshots, model.MarketSnapshot{
			Asset:            model.Asset{ID: id, Symbol: fmt.Sprintf("C%d", i+1), Name: fmt.Sprintf("Coin %d", i+1)},
			Rank:             i + 1,
			PriceUSD:         &price,
			MarketCapUSD:     &snapCap,
			VolumeUSD24h:     &vol,
			ChangePercent24h: &chg,
		})
		m.Series[id] = generateMockSeries(id, base, 90, now)
	}
	return m
}

func (m *MockIndexProvider) Name() string { return "mock-index" }

func (m *MockIndexProvider) ListRankedAssets(_ context.Context, limit int) ([]model.MarketSnapshot, error) {
	m.record("assets")
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if limit > 0 && limit < len(m.Snapshots) {
		return append([]model.MarketSnapshot(nil), m.Snapshots[:limit]...), nil
	}
	return append([]model.MarketSnapshot(nil), m.Snapshots...), nil
}

func (m *MockIndexProvider) FetchHistoricalSeries(ctx context.Context, assetID string, _ int) (model.PriceSeries, error) {
	m.record(assetID)
	if d := m.Delay[assetID]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return model.PriceSeries{AssetID: assetID}, model.NewUnavailable("mock-index", "history", ctx.Err())
		}
	}
	if err := m.HistoryErr[assetID]; err != nil {
		return model.PriceSeries{AssetID: assetID}, err
	}
	s, ok := m.Series[assetID]
	if !ok {
		return model.PriceSeries{AssetID: assetID}, nil
	}
	return s, nil
}

// Calls returns how many times key was requested ("assets" or an asset id).
func (m *MockIndexProvider) Calls(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

func (m *MockIndexProvider) record(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[key]++
}

// MockExchangeProvider returns fixed pairs and candles.
type MockExchangeProvider struct {
	Pairs    map[string]string
	Bars     map[string][]model.OHLCBar
	PairsErr error
	OHLCErr  error

	mu       sync.Mutex
	requests []int // granularities requested, in order
}

// NewMockExchangeProvider generates daily bars for each base asset in bases.
func NewMockExchangeProvider(now time.Time, bases ...string) *MockExchangeProvider {
	m := &MockExchangeProvider{
		Pairs: make(map[string]string, len(bases)),
		Bars:  make(map[string][]model.OHLCBar, len(bases)),
	}
	for i, b := range bases {
		pair := b + "ZUSD"
		m.Pairs[b] = pair
		m.Bars[pair] = generateMockBars(100*float64(i+1), 365, now)
	}
	return m
}

func (m *MockExchangeProvider) Name() string { return "mock-exchange" }

func (m *MockExchangeProvider) ListTradingPairs(_ context.Context, _ string) (map[string]string, error) {
	if m.PairsErr != nil {
		return nil, m.PairsErr
	}
	out := make(map[string]string, len(m.Pairs))
	for k, v := range m.Pairs {
		out[k] = v
	}
	return out, nil
}

func (m *MockExchangeProvider) FetchOHLC(_ context.Context, pairKey string, granularityMinutes int) ([]model.OHLCBar, error) {
	m.mu.Lock()
	m.requests = append(m.requests, granularityMinutes)
	m.mu.Unlock()
	if m.OHLCErr != nil {
		return nil, m.OHLCErr
	}
	return m.Bars[pairKey], nil
}

func (m *MockExchangeProvider) ResolveFirstTradeDate(ctx context.Context, pairKey string) (time.Time, bool) {
	bars, err := m.FetchOHLC(ctx, pairKey, CoarsestGranularity)
	if err != nil {
		return time.Time{}, false
	}
	return EarliestBar(bars)
}

// Requests returns the granularities requested so far.
func (m *MockExchangeProvider) Requests() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.requests...)
}

func generateMockSeries(id string, basePrice float64, days int, now time.Time) model.PriceSeries {
	s := model.PriceSeries{AssetID: id, Points: make([]model.PricePoint, days)}
	for i := 0; i < days; i++ {
		s.Points[i] = model.PricePoint{
			Time:     now.AddDate(0, 0, -(days - i)),
			PriceUSD: basePrice * (1 + float64(i-days/2)*0.001),
		}
	}
	return s
}

func generateMockBars(basePrice float64, count int, now time.Time) []model.OHLCBar {
	bars := make([]model.OHLCBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCBar{
			Time:       now.AddDate(0, 0, -(count - i)),
			Open:       p * 0.999,
			High:       p * 1.005,
			Low:        p * 0.995,
			Close:      p,
			VWAP:       p,
			Volume:     1000,
			TradeCount: 100,
		}
	}
	return bars
}
