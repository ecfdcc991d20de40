package aggregator

import (
	"strings"

	"CoinDash/internal/calculator"
	"CoinDash/internal/model"
)

const (
	billion = 1e9
	million = 1e6

	othersName = "Other Cryptocurrencies"
)

// ComposeMarket splits snapshots into the first topN named buckets plus one OTHERS bucket
// holding the summed cap of the rest. Missing caps are skipped, never counted as zero.
func ComposeMarket(snaps []model.MarketSnapshot, topN int) model.MarketComposition {
	if len(snaps) == 0 {
		return emptyComposition(topN)
	}

	top := head(snaps, topN)
	comp := model.MarketComposition{
		Buckets: make([]model.CompositionBucket, 0, len(top)+1),
		TopN:    topN,
	}

	var total float64
	for _, s := range top {
		if s.MarketCapUSD != nil {
			total += *s.MarketCapUSD
		}
		comp.Buckets = append(comp.Buckets, model.CompositionBucket{
			Label:             strings.ToUpper(s.Symbol),
			Name:              s.Name,
			Rank:              s.Rank,
			MarketCapUSD:      s.MarketCapUSD,
			MarketCapBillions: calculator.Scaled(s.MarketCapUSD, billion),
			PriceUSD:          calculator.Scaled(s.PriceUSD, 1),
			ChangePercent24h:  calculator.Scaled(s.ChangePercent24h, 1),
			VolumeMillions24h: calculator.Scaled(s.VolumeUSD24h, million),
		})
	}

	var others float64
	for _, s := range snaps[len(top):] {
		if s.MarketCapUSD != nil {
			others += *s.MarketCapUSD
		}
	}
	total += others
	comp.Buckets = append(comp.Buckets, model.CompositionBucket{
		Label:             model.OthersLabel,
		Name:              othersName,
		MarketCapUSD:      &others,
		MarketCapBillions: calculator.Scaled(&others, billion),
		Others:            true,
	})

	comp.TotalMarketCapUSD = total
	comp.TotalMarketCapBillions = calculator.Round2(total / billion)
	return comp
}

func emptyComposition(topN int) model.MarketComposition {
	return model.MarketComposition{
		Buckets: []model.CompositionBucket{},
		TopN:    topN,
	}
}
