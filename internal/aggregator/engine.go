// Package aggregator derives change tables, market composition and chart series
// from the index and exchange providers.
package aggregator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"CoinDash/internal/calculator"
	"CoinDash/internal/collector"
	"CoinDash/internal/logger"
	"CoinDash/internal/metrics"
	"CoinDash/internal/model"
)

// ChangeWindows are the trailing windows, in daily points, of the change table.
var ChangeWindows = [3]int{7, 30, 60}

// Settings tunes the engine. Zero fields take the defaults.
type Settings struct {
	ChangeLimit   int // assets in the change table
	TopN          int // named buckets in the composition and rows in the market table
	SnapshotLimit int // snapshots fetched for the composition
	HistoryDays   int // history requested per asset
	Workers       int // concurrent history fetches
}

// DefaultSettings mirrors the dashboard defaults.
func DefaultSettings() Settings {
	return Settings{
		ChangeLimit:   10,
		TopN:          10,
		SnapshotLimit: 250,
		HistoryDays:   90,
		Workers:       4,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.ChangeLimit <= 0 {
		s.ChangeLimit = d.ChangeLimit
	}
	if s.TopN <= 0 {
		s.TopN = d.TopN
	}
	if s.SnapshotLimit <= 0 {
		s.SnapshotLimit = d.SnapshotLimit
	}
	if s.HistoryDays <= 0 {
		s.HistoryDays = d.HistoryDays
	}
	if s.Workers <= 0 {
		s.Workers = d.Workers
	}
	return s
}

// Engine builds the batch views. It keeps no state between calls and is safe for concurrent use.
type Engine struct {
	index    collector.IndexProvider
	settings Settings
	now      func() time.Time
}

// NewEngine creates an Engine over the given index provider.
func NewEngine(index collector.IndexProvider, settings Settings) *Engine {
	return &Engine{index: index, settings: settings.withDefaults(), now: time.Now}
}

// Settings returns the effective settings.
func (e *Engine) Settings() Settings { return e.settings }

// seriesResult pairs an asset with the outcome of its history fetch.
type seriesResult struct {
	snap   model.MarketSnapshot
	series model.PriceSeries
	err    error
}

// BuildChangeTable computes multi-window changes for the top limit assets.
// A failed ranked-list fetch yields an empty table; a failed history fetch drops that asset.
// Fetches cut short by a cancelled ctx are omitted without being counted as failures.
func (e *Engine) BuildChangeTable(ctx context.Context, limit int) model.ChangeTable {
	if limit <= 0 {
		limit = e.settings.ChangeLimit
	}
	snaps, err := e.index.ListRankedAssets(ctx, limit)
	if err != nil {
		logger.With("aggregator").WithError(err).Warn("change table: ranked asset list unavailable")
		return model.ChangeTable{Rows: []model.ChangeMetrics{}}
	}
	return e.changeTable(ctx, snaps)
}

func (e *Engine) changeTable(ctx context.Context, snaps []model.MarketSnapshot) model.ChangeTable {
	results := e.fetchSeries(ctx, snaps)

	table := model.ChangeTable{Rows: make([]model.ChangeMetrics, 0, len(results)), Requested: len(results)}
	for _, r := range results {
		if errors.Is(r.err, context.Canceled) {
			continue
		}
		if r.err != nil {
			logger.With("aggregator").WithError(r.err).WithField("asset", r.snap.ID).Warn("history fetch failed, asset dropped")
			metrics.AssetsDropped.Inc()
			table.Failed++
			table.Dropped = append(table.Dropped, r.snap.Symbol)
			continue
		}
		table.Rows = append(table.Rows, changeMetrics(r.snap, r.series))
	}
	return table
}

// fetchSeries fetches history for every snapshot with bounded concurrency.
// Results keep the input order; one failure never cancels the others.
func (e *Engine) fetchSeries(ctx context.Context, snaps []model.MarketSnapshot) []seriesResult {
	results := make([]seriesResult, len(snaps))
	var g errgroup.Group
	g.SetLimit(e.settings.Workers)
	for i, s := range snaps {
		results[i].snap = s
		g.Go(func() error {
			series, err := e.index.FetchHistoricalSeries(ctx, s.ID, e.settings.HistoryDays)
			results[i].series = series
			results[i].err = err
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func changeMetrics(snap model.MarketSnapshot, series model.PriceSeries) model.ChangeMetrics {
	return model.ChangeMetrics{
		Symbol: snap.Symbol,
		Name:   snap.Name,
		Pct24h: snap.ChangePercent24h,
		Pct7d:  calculator.WindowChange(series, ChangeWindows[0]),
		Pct30d: calculator.WindowChange(series, ChangeWindows[1]),
		Pct60d: calculator.WindowChange(series, ChangeWindows[2]),
	}
}

// BuildMarketComposition returns the top-N buckets plus OTHERS.
// A failed snapshot fetch yields an empty composition.
func (e *Engine) BuildMarketComposition(ctx context.Context, topN int) model.MarketComposition {
	if topN <= 0 {
		topN = e.settings.TopN
	}
	snaps, err := e.index.ListRankedAssets(ctx, e.settings.SnapshotLimit)
	if err != nil {
		logger.With("aggregator").WithError(err).Warn("composition: ranked asset list unavailable")
		return emptyComposition(topN)
	}
	return ComposeMarket(snaps, topN)
}

// BuildMarketTable returns the top n assets as table rows, or an empty slice on failure.
func (e *Engine) BuildMarketTable(ctx context.Context, n int) []model.MarketTableRow {
	if n <= 0 {
		n = e.settings.TopN
	}
	snaps, err := e.index.ListRankedAssets(ctx, n)
	if err != nil {
		logger.With("aggregator").WithError(err).Warn("market table: ranked asset list unavailable")
		return []model.MarketTableRow{}
	}
	return MarketTable(snaps, n)
}

// BuildVolumeRanking returns 24h volume for the top n assets, or an empty slice on failure.
func (e *Engine) BuildVolumeRanking(ctx context.Context, n int) []model.VolumeEntry {
	if n <= 0 {
		n = e.settings.TopN
	}
	snaps, err := e.index.ListRankedAssets(ctx, n)
	if err != nil {
		logger.With("aggregator").WithError(err).Warn("volume ranking: ranked asset list unavailable")
		return []model.VolumeEntry{}
	}
	return VolumeRanking(snaps, n)
}

// BuildDashboard runs one full refresh pass off a single snapshot fetch.
func (e *Engine) BuildDashboard(ctx context.Context) model.Dashboard {
	start := time.Now()
	defer metrics.ObserveRefresh("dashboard", start)

	now := e.now()
	d := model.Dashboard{RunID: uuid.NewString(), UpdatedAt: now}

	snaps, err := e.index.ListRankedAssets(ctx, e.settings.SnapshotLimit)
	if err != nil {
		logger.With("aggregator").WithError(err).WithField("run_id", d.RunID).Warn("dashboard: ranked asset list unavailable")
		d.Composition = emptyComposition(e.settings.TopN)
		d.MarketTable = []model.MarketTableRow{}
		d.Volumes = []model.VolumeEntry{}
		d.Changes = model.ChangeTable{Rows: []model.ChangeMetrics{}}
		return d
	}

	d.Composition = ComposeMarket(snaps, e.settings.TopN)
	d.MarketTable = MarketTable(snaps, e.settings.TopN)
	d.Volumes = VolumeRanking(snaps, e.settings.TopN)
	d.Changes = e.changeTable(ctx, head(snaps, e.settings.ChangeLimit))

	logger.With("aggregator").WithFields(logrus.Fields{
		"run_id":  d.RunID,
		"assets":  len(snaps),
		"changes": len(d.Changes.Rows),
		"dropped": d.Changes.Failed,
	}).Info("dashboard pass complete")
	return d
}

// MarketTable formats the first n snapshots as display rows.
func MarketTable(snaps []model.MarketSnapshot, n int) []model.MarketTableRow {
	top := head(snaps, n)
	rows := make([]model.MarketTableRow, 0, len(top))
	for _, s := range top {
		rows = append(rows, model.MarketTableRow{
			Rank:              s.Rank,
			Symbol:            strings.ToUpper(s.Symbol),
			Name:              s.Name,
			PriceUSD:          calculator.Scaled(s.PriceUSD, 1),
			MarketCapBillions: calculator.Scaled(s.MarketCapUSD, billion),
			VolumeMillions24h: calculator.Scaled(s.VolumeUSD24h, million),
			ChangePercent24h:  calculator.Scaled(s.ChangePercent24h, 1),
		})
	}
	return rows
}

// VolumeRanking lists the 24h USD volume of the first n snapshots in rank order.
func VolumeRanking(snaps []model.MarketSnapshot, n int) []model.VolumeEntry {
	top := head(snaps, n)
	out := make([]model.VolumeEntry, 0, len(top))
	for _, s := range top {
		out = append(out, model.VolumeEntry{
			Symbol:       strings.ToUpper(s.Symbol),
			Name:         s.Name,
			VolumeUSD24h: s.VolumeUSD24h,
		})
	}
	return out
}

func head(snaps []model.MarketSnapshot, n int) []model.MarketSnapshot {
	if n < 0 {
		n = 0
	}
	if n > len(snaps) {
		n = len(snaps)
	}
	return snaps[:n]
}
