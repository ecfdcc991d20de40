package aggregator

import (
	"context"
	"fmt"
	"time"

	"CoinDash/internal/calculator"
	"CoinDash/internal/collector"
	"CoinDash/internal/logger"
	"CoinDash/internal/model"
)

const (
	// PeriodAll resolves its lookback from the pair's first trade date.
	PeriodAll = "all"

	// FallbackLookbackDays is used for PeriodAll when the first trade date is unknown.
	FallbackLookbackDays = 8 * 365
)

func days(n int) *int { return &n }

// Periods lists the chart periods in display order.
var Periods = []model.PeriodSpec{
	{Name: "15m", GranularityMinutes: 15, LookbackDays: days(7)},
	{Name: "30m", GranularityMinutes: 30, LookbackDays: days(15)},
	{Name: "1h", GranularityMinutes: 60, LookbackDays: days(30)},
	{Name: "4h", GranularityMinutes: 240, LookbackDays: days(90)},
	{Name: "1d", GranularityMinutes: 1440, LookbackDays: days(365)},
	{Name: "1w", GranularityMinutes: 10080, LookbackDays: days(3 * 365)},
	{Name: PeriodAll, GranularityMinutes: collector.CoarsestGranularity},
}

// LookupPeriod finds a period by name.
func LookupPeriod(name string) (model.PeriodSpec, bool) {
	for _, p := range Periods {
		if p.Name == name {
			return p, true
		}
	}
	return model.PeriodSpec{}, false
}

// FirstTradeResolver reports the earliest candle of a pair.
type FirstTradeResolver interface {
	ResolveFirstTradeDate(ctx context.Context, pairKey string) (time.Time, bool)
}

// ResolvedPeriod is a period turned into concrete query parameters.
type ResolvedPeriod struct {
	Name               string
	GranularityMinutes int
	LookbackDays       int
}

// PeriodResolver turns period names into granularity and lookback.
type PeriodResolver struct {
	trades FirstTradeResolver
	now    func() time.Time
}

func NewPeriodResolver(trades FirstTradeResolver) *PeriodResolver {
	return &PeriodResolver{trades: trades, now: time.Now}
}

// Resolve maps name to query parameters for pairKey. A dynamic lookback is the
// number of whole days since the first trade, or FallbackLookbackDays when that is absent.
func (r *PeriodResolver) Resolve(ctx context.Context, name, pairKey string) (ResolvedPeriod, error) {
	spec, ok := LookupPeriod(name)
	if !ok {
		return ResolvedPeriod{}, fmt.Errorf("%w: %q", model.ErrUnknownPeriod, name)
	}

	out := ResolvedPeriod{Name: spec.Name, GranularityMinutes: spec.GranularityMinutes}
	if spec.LookbackDays != nil {
		out.LookbackDays = *spec.LookbackDays
		return out, nil
	}

	first, ok := r.trades.ResolveFirstTradeDate(ctx, pairKey)
	if !ok {
		logger.With("aggregator").WithField("pair", pairKey).Warnf("first trade date unavailable, using %d days", FallbackLookbackDays)
		out.LookbackDays = FallbackLookbackDays
		return out, nil
	}
	out.LookbackDays = calculator.DaysBetween(first, r.now())
	return out, nil
}
