package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"CoinDash/internal/collector"
	"CoinDash/internal/model"
)

// SymbolLookup maps an exchange base asset to its pair key.
type SymbolLookup interface {
	Lookup(symbol string) (string, bool)
	Len() int
}

var errCatalogEmpty = errors.New("symbol catalog not loaded")

// ChartService serves OHLC charts for (symbol, period) requests.
type ChartService struct {
	exchange collector.ExchangeProvider
	symbols  SymbolLookup
	periods  *PeriodResolver
	now      func() time.Time
}

func NewChartService(exchange collector.ExchangeProvider, symbols SymbolLookup) *ChartService {
	return &ChartService{
		exchange: exchange,
		symbols:  symbols,
		periods:  NewPeriodResolver(exchange),
		now:      time.Now,
	}
}

// GetPriceHistoryChart resolves symbol and period and fetches the candles.
// Provider failures are returned to the caller unchanged in kind.
func (s *ChartService) GetPriceHistoryChart(ctx context.Context, symbol, period string) (*model.PriceChart, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if s.symbols.Len() == 0 {
		return nil, model.NewUnavailable("catalog", "lookup", errCatalogEmpty)
	}
	pairKey, ok := s.symbols.Lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownSymbol, symbol)
	}

	resolved, err := s.periods.Resolve(ctx, period, pairKey)
	if err != nil {
		return nil, err
	}

	bars, err := s.exchange.FetchOHLC(ctx, pairKey, resolved.GranularityMinutes)
	if err != nil {
		return nil, fmt.Errorf("chart %s/%s: %w", symbol, period, err)
	}

	end := s.now()
	return &model.PriceChart{
		Symbol:             symbol,
		PairKey:            pairKey,
		Period:             resolved.Name,
		GranularityMinutes: resolved.GranularityMinutes,
		LookbackDays:       resolved.LookbackDays,
		FocusStart:         end.AddDate(0, 0, -resolved.LookbackDays),
		FocusEnd:           end,
		Bars:               bars,
	}, nil
}
