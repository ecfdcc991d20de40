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
	"time"

	"CoinDash/internal/metrics"
	"CoinDash/internal/model"
)

const coincapName = "coincap"

// CoinCapProvider implements IndexProvider using the CoinCap REST API.
type CoinCapProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Timeout time.Duration // per call

	now func() time.Time
}

// NewCoinCapProvider creates an index provider. apiKey is optional.
func NewCoinCapProvider(baseURL, apiKey string, client *http.Client, timeout time.Duration) *CoinCapProvider {
	return &CoinCapProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  client,
		Timeout: timeout,
		now:     time.Now,
	}
}

func (p *CoinCapProvider) Name() string { return coincapName }

// coincapAsset is one entry of GET /assets. CoinCap sends numbers as strings, sometimes null.
type coincapAsset struct {
	ID                string          `json:"id"`
	Rank              json.RawMessage `json:"rank"`
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name"`
	PriceUsd          json.RawMessage `json:"priceUsd"`
	MarketCapUsd      json.RawMessage `json:"marketCapUsd"`
	VolumeUsd24Hr     json.RawMessage `json:"volumeUsd24Hr"`
	ChangePercent24Hr json.RawMessage `json:"changePercent24Hr"`
}

type coincapHistoryPoint struct {
	PriceUsd json.RawMessage `json:"priceUsd"`
	Time     int64           `json:"time"`
}

func (p *CoinCapProvider) header() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if p.APIKey != "" {
		h.Set("Authorization", "Bearer "+p.APIKey)
	}
	return h
}

// ListRankedAssets returns up to limit snapshots in provider rank order.
func (p *CoinCapProvider) ListRankedAssets(ctx context.Context, limit int) (snaps []model.MarketSnapshot, err error) {
	const op = "assets"
	defer func() { metrics.ObserveRequest(coincapName, op, err) }()

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/assets?%s", p.BaseURL, q.Encode())

	var body struct {
		Data *[]coincapAsset `json:"data"`
	}
	if err := getJSON(ctx, p.Client, coincapName, op, endpoint, p.header(), p.Timeout, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, model.NewMalformed(coincapName, op, errors.New("missing data field"))
	}

	snaps = make([]model.MarketSnapshot, 0, len(*body.Data))
	for i, a := range *body.Data {
		if a.ID == "" || a.Symbol == "" {
			return nil, model.NewMalformed(coincapName, op, fmt.Errorf("asset %d missing id or symbol", i))
		}
		rank := i + 1
		if r, ok := parseNumber(a.Rank); ok {
			rank = int(r)
		}
		snaps = append(snaps, model.MarketSnapshot{
			Asset:            model.Asset{ID: a.ID, Symbol: a.Symbol, Name: a.Name},
			Rank:             rank,
			PriceUSD:         nullableNumber(a.PriceUsd),
			MarketCapUSD:     nullableNumber(a.MarketCapUsd),
			VolumeUSD24h:     nullableNumber(a.VolumeUsd24Hr),
			ChangePercent24h: nullableNumber(a.ChangePercent24Hr),
		})
	}
	return snaps, nil
}

// FetchHistoricalSeries returns daily prices for [now - days, now].
// Any failure is returned as an error and the series is empty; batch callers are
// expected to drop the asset rather than abort.
func (p *CoinCapProvider) FetchHistoricalSeries(ctx context.Context, assetID string, days int) (series model.PriceSeries, err error) {
	const op = "history"
	defer func() { metrics.ObserveRequest(coincapName, op, err) }()

	series = model.PriceSeries{AssetID: assetID}

	end := p.now()
	start := end.AddDate(0, 0, -days)
	q := url.Values{}
	q.Set("interval", "d1")
	q.Set("start", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("end", strconv.FormatInt(end.UnixMilli(), 10))
	endpoint := fmt.Sprintf("%s/assets/%s/history?%s", p.BaseURL, url.PathEscape(assetID), q.Encode())

	var body struct {
		Data *[]coincapHistoryPoint `json:"data"`
	}
	if err := getJSON(ctx, p.Client, coincapName, op, endpoint, p.header(), p.Timeout, &body); err != nil {
		return series, err
	}
	if body.Data == nil {
		return series, model.NewMalformed(coincapName, op, fmt.Errorf("%s: missing data field", assetID))
	}

	points := make([]model.PricePoint, 0, len(*body.Data))
	for _, hp := range *body.Data {
		price, ok := parseNumber(hp.PriceUsd)
		if !ok {
			return model.PriceSeries{AssetID: assetID}, model.NewMalformed(coincapName, op,
				fmt.Errorf("%s: parse price %s", assetID, string(hp.PriceUsd)))
		}
		points = append(points, model.PricePoint{Time: time.UnixMilli(hp.Time).UTC(), PriceUSD: price})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	series.Points = points
	return series, nil
}
