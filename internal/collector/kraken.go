package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"CoinDash/internal/logger"
	"CoinDash/internal/metrics"
	"CoinDash/internal/model"
)

const (
	krakenName = "kraken"

	// CoarsestGranularity is the widest candle Kraken serves, in minutes.
	CoarsestGranularity = 21600
	// ohlcHistoryYears anchors every OHLC request this far in the past.
	ohlcHistoryYears = 10
)

// KrakenProvider implements ExchangeProvider using Kraken's public REST API.
type KrakenProvider struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration // per call

	now func() time.Time
}

// NewKrakenProvider creates an exchange provider.
func NewKrakenProvider(baseURL string, client *http.Client, timeout time.Duration) *KrakenProvider {
	return &KrakenProvider{
		BaseURL: baseURL,
		Client:  client,
		Timeout: timeout,
		now:     time.Now,
	}
}

func (p *KrakenProvider) Name() string { return krakenName }

// krakenEnvelope wraps every Kraken public response.
type krakenEnvelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

type krakenAssetPair struct {
	Altname string `json:"altname"`
	Wsname  string `json:"wsname"`
	Base    string `json:"base"`
	Quote   string `json:"quote"`
}

func (p *KrakenProvider) get(ctx context.Context, op, endpoint string) (json.RawMessage, error) {
	var env krakenEnvelope
	if err := getJSON(ctx, p.Client, krakenName, op, endpoint, nil, p.Timeout, &env); err != nil {
		return nil, err
	}
	if len(env.Error) > 0 {
		return nil, model.NewUnavailable(krakenName, op, errors.New(strings.Join(env.Error, "; ")))
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, model.NewMalformed(krakenName, op, errors.New("missing result field"))
	}
	return env.Result, nil
}

// TradingPairs returns the catalog pairs whose key ends with quote, sorted by pair key.
func (p *KrakenProvider) TradingPairs(ctx context.Context, quote string) (pairs []model.TradingPair, err error) {
	const op = "asset_pairs"
	defer func() { metrics.ObserveRequest(krakenName, op, err) }()

	raw, err := p.get(ctx, op, p.BaseURL+"/AssetPairs")
	if err != nil {
		return nil, err
	}
	var catalog map[string]krakenAssetPair
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, model.NewMalformed(krakenName, op, fmt.Errorf("decode pairs: %w", err))
	}

	for key, ap := range catalog {
		if !strings.HasSuffix(key, quote) || ap.Base == "" {
			continue
		}
		q := ap.Quote
		if q == "" {
			q = quote
		}
		pairs = append(pairs, model.TradingPair{PairKey: key, BaseAsset: ap.Base, QuoteCurrency: q})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].PairKey < pairs[j].PairKey })
	return pairs, nil
}

// ListTradingPairs maps base asset to pair key for pairs quoted in quote.
// When several pairs share a base asset the shortest key wins, ties broken lexically.
func (p *KrakenProvider) ListTradingPairs(ctx context.Context, quote string) (map[string]string, error) {
	pairs, err := p.TradingPairs(ctx, quote)
	if err != nil {
		return nil, err
	}
	return IndexByBase(pairs), nil
}

// IndexByBase inverts pairs into base asset -> pair key, resolving collisions
// in favour of the shortest, then lexically smallest, pair key.
func IndexByBase(pairs []model.TradingPair) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, tp := range pairs {
		cur, ok := out[tp.BaseAsset]
		if !ok || len(tp.PairKey) < len(cur) || (len(tp.PairKey) == len(cur) && tp.PairKey < cur) {
			out[tp.BaseAsset] = tp.PairKey
		}
	}
	return out
}

// FetchOHLC returns candles for pairKey since the fixed anchor, ascending by time.
// Errors are returned to the caller unchanged.
func (p *KrakenProvider) FetchOHLC(ctx context.Context, pairKey string, granularityMinutes int) (bars []model.OHLCBar, err error) {
	const op = "ohlc"
	defer func() { metrics.ObserveRequest(krakenName, op, err) }()

	since := p.now().AddDate(-ohlcHistoryYears, 0, 0)
	q := url.Values{}
	q.Set("pair", pairKey)
	q.Set("interval", strconv.Itoa(granularityMinutes))
	q.Set("since", strconv.FormatInt(since.Unix(), 10))

	raw, err := p.get(ctx, op, fmt.Sprintf("%s/OHLC?%s", p.BaseURL, q.Encode()))
	if err != nil {
		return nil, err
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, model.NewMalformed(krakenName, op, fmt.Errorf("decode result: %w", err))
	}
	rowsRaw, ok := result[pairKey]
	if !ok {
		rowsRaw, ok = singleSeries(result)
	}
	if !ok {
		return nil, model.NewMalformed(krakenName, op, fmt.Errorf("no series for %s", pairKey))
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(rowsRaw, &rows); err != nil {
		return nil, model.NewMalformed(krakenName, op, fmt.Errorf("decode rows: %w", err))
	}

	bars = make([]model.OHLCBar, 0, len(rows))
	for i, row := range rows {
		bar, err := parseOHLCRow(row)
		if err != nil {
			return nil, model.NewMalformed(krakenName, op, fmt.Errorf("row %d: %w", i, err))
		}
		bars = append(bars, bar)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// singleSeries returns the only series in an OHLC result, ignoring the "last" cursor.
// Kraken may key the series by the canonical pair name rather than the one requested.
func singleSeries(result map[string]json.RawMessage) (json.RawMessage, bool) {
	var found json.RawMessage
	n := 0
	for k, v := range result {
		if k == "last" {
			continue
		}
		found = v
		n++
	}
	return found, n == 1
}

// parseOHLCRow reads [time, open, high, low, close, vwap, volume, count].
func parseOHLCRow(row []json.RawMessage) (model.OHLCBar, error) {
	if len(row) < 8 {
		return model.OHLCBar{}, fmt.Errorf("expected 8 fields, got %d", len(row))
	}
	ts, ok := parseNumber(row[0])
	if !ok {
		return model.OHLCBar{}, fmt.Errorf("parse time %s", string(row[0]))
	}

	names := [...]string{"open", "high", "low", "close", "vwap", "volume"}
	var vals [6]float64
	for i := range names {
		v, ok := parseNumber(row[i+1])
		if !ok {
			return model.OHLCBar{}, fmt.Errorf("parse %s %s", names[i], string(row[i+1]))
		}
		vals[i] = v
	}

	count, ok := parseNumber(row[7])
	if !ok {
		return model.OHLCBar{}, fmt.Errorf("parse count %s", string(row[7]))
	}

	return model.OHLCBar{
		Time:       time.Unix(int64(ts), 0).UTC(),
		Open:       vals[0],
		High:       vals[1],
		Low:        vals[2],
		Close:      vals[3],
		VWAP:       vals[4],
		Volume:     vals[5],
		TradeCount: int64(count),
	}, nil
}

// ResolveFirstTradeDate returns the earliest candle time at the coarsest granularity.
// ok is false when the fetch fails or the series is empty.
func (p *KrakenProvider) ResolveFirstTradeDate(ctx context.Context, pairKey string) (time.Time, bool) {
	bars, err := p.FetchOHLC(ctx, pairKey, CoarsestGranularity)
	if err != nil {
		logger.With("collector").WithError(err).WithField("pair", pairKey).Warn("first trade date lookup failed")
		return time.Time{}, false
	}
	return EarliestBar(bars)
}

// EarliestBar returns the minimum bar time.
func EarliestBar(bars []model.OHLCBar) (time.Time, bool) {
	if len(bars) == 0 {
		return time.Time{}, false
	}
	first := bars[0].Time
	for _, b := range bars[1:] {
		if b.Time.Before(first) {
			first = b.Time
		}
	}
	return first, true
}
