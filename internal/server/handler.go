// Package server exposes the dashboard data over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"CoinDash/internal/aggregator"
	"CoinDash/internal/logger"
	"CoinDash/internal/model"
	"CoinDash/internal/scheduler"
)

const (
	maxChangeLimit = 100
	maxTopN        = 100
)

// Refresher owns the latest dashboard and runs passes on demand.
type Refresher interface {
	Latest() (model.Dashboard, bool)
	RefreshNow(ctx context.Context) (model.Dashboard, error)
	RefreshCatalog(ctx context.Context) error
}

// MarketViews builds individual dashboard views.
type MarketViews interface {
	BuildChangeTable(ctx context.Context, limit int) model.ChangeTable
	BuildMarketComposition(ctx context.Context, topN int) model.MarketComposition
	BuildMarketTable(ctx context.Context, n int) []model.MarketTableRow
	BuildVolumeRanking(ctx context.Context, n int) []model.VolumeEntry
}

// Charts serves OHLC charts.
type Charts interface {
	GetPriceHistoryChart(ctx context.Context, symbol, period string) (*model.PriceChart, error)
}

// Symbols is the read side of the pair catalog.
type Symbols interface {
	Symbols() map[string]string
	SortedSymbols() []string
	RefreshedAt() time.Time
}

// Defaults are the initial dropdown selections.
type Defaults struct {
	Symbol string
	Period string
}

// Handler serves the dashboard API.
type Handler struct {
	refresher Refresher
	views     MarketViews
	charts    Charts
	symbols   Symbols
	defaults  Defaults
	now       func() time.Time
}

func NewHandler(r Refresher, v MarketViews, c Charts, s Symbols, d Defaults) *Handler {
	return &Handler{refresher: r, views: v, charts: c, symbols: s, defaults: d, now: time.Now}
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Dashboard returns the latest scheduled pass.
//
// GET /api/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	d, ok := h.refresher.Latest()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "no dashboard yet"})
		return
	}
	c.JSON(http.StatusOK, d)
}

// Refresh runs a dashboard pass now and returns it.
//
// POST /api/refresh
func (h *Handler) Refresh(c *gin.Context) {
	d, err := h.refresher.RefreshNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrSuperseded) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

// Changes returns the multi-window change table. It never fails; dropped assets are reported.
//
// GET /api/changes?limit=10
func (h *Handler) Changes(c *gin.Context) {
	limit := clamp(queryInt(c, "limit"), maxChangeLimit)
	t := h.views.BuildChangeTable(c.Request.Context(), limit)
	c.JSON(http.StatusOK, changeTableResponse(t))
}

// Composition returns the market-cap composition with rendered bucket summaries.
//
// GET /api/composition?top=10
func (h *Handler) Composition(c *gin.Context) {
	top := clamp(queryInt(c, "top"), maxTopN)
	comp := h.views.BuildMarketComposition(c.Request.Context(), top)
	c.JSON(http.StatusOK, compositionResponse(comp, h.now()))
}

// GET /api/market-table?top=10
func (h *Handler) MarketTable(c *gin.Context) {
	top := clamp(queryInt(c, "top"), maxTopN)
	c.JSON(http.StatusOK, h.views.BuildMarketTable(c.Request.Context(), top))
}

// GET /api/volumes?top=10
func (h *Handler) Volumes(c *gin.Context) {
	top := clamp(queryInt(c, "top"), maxTopN)
	c.JSON(http.StatusOK, h.views.BuildVolumeRanking(c.Request.Context(), top))
}

// GET /api/symbols
func (h *Handler) Symbols(c *gin.Context) {
	c.JSON(http.StatusOK, SymbolsResponse{
		Symbols:     h.symbols.Symbols(),
		Sorted:      h.symbols.SortedSymbols(),
		Default:     h.defaults.Symbol,
		RefreshedAt: h.symbols.RefreshedAt(),
	})
}

// RefreshSymbols reloads the pair catalog. The previous catalog stays on failure.
//
// POST /api/symbols/refresh
func (h *Handler) RefreshSymbols(c *gin.Context) {
	if err := h.refresher.RefreshCatalog(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	h.Symbols(c)
}

// GET /api/periods
func (h *Handler) Periods(c *gin.Context) {
	c.JSON(http.StatusOK, PeriodsResponse{Periods: aggregator.Periods, Default: h.defaults.Period})
}

// Chart returns the OHLC chart of a symbol over a named period.
//
// GET /api/chart/:symbol?period=1d
func (h *Handler) Chart(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		symbol = h.defaults.Symbol
	}
	period := c.DefaultQuery("period", h.defaults.Period)

	chart, err := h.charts.GetPriceHistoryChart(c.Request.Context(), symbol, period)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, chart)
	case errors.Is(err, model.ErrUnknownSymbol):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrUnknownPeriod):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		logger.With("server").WithError(err).WithField("symbol", symbol).Warn("chart fetch failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	}
}

// queryInt parses an optional integer parameter. Missing or invalid values yield 0,
// which the engine replaces with its default.
func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func clamp(n, max int) int {
	if n > max {
		return max
	}
	return n
}
