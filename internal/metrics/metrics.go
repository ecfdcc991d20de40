package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"CoinDash/internal/model"
)

var (
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coindash_provider_requests_total",
		Help: "Upstream provider calls by outcome",
	}, []string{"provider", "op", "outcome"})

	AssetsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coindash_assets_dropped_total",
		Help: "Assets dropped from a change table because their history fetch failed",
	})

	RefreshDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coindash_refresh_duration_seconds",
		Help:    "Duration of refresh passes",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	CatalogPairs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coindash_catalog_pairs",
		Help: "Number of symbols in the trading-pair catalog",
	})
)

// ObserveRequest counts one provider call under ok, malformed or unavailable.
func ObserveRequest(provider, op string, err error) {
	ProviderRequests.WithLabelValues(provider, op, outcome(err)).Inc()
}

// ObserveRefresh records the duration of a refresh pass started at start.
func ObserveRefresh(kind string, start time.Time) {
	RefreshDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrMalformedResponse):
		return "malformed"
	default:
		return "unavailable"
	}
}
