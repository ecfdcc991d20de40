package server

import (
	"time"

	"CoinDash/internal/model"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ChangeTableResponse struct {
	Rows      []ChangeRow `json:"rows"`
	Requested int         `json:"requested"`
	Failed    int         `json:"failed"`
	Dropped   []string    `json:"dropped,omitempty"`
}

type CompositionResponse struct {
	model.MarketComposition
	GeneratedAt time.Time `json:"generated_at"`
	Title       string    `json:"title"`
	Summaries   []string  `json:"summaries"`
}

type SymbolsResponse struct {
	Symbols     map[string]string `json:"symbols"`
	Sorted      []string          `json:"sorted"`
	Default     string            `json:"default"`
	RefreshedAt time.Time         `json:"refreshed_at"`
}

type PeriodsResponse struct {
	Periods []model.PeriodSpec `json:"periods"`
	Default string             `json:"default"`
}

func changeTableResponse(t model.ChangeTable) ChangeTableResponse {
	return ChangeTableResponse{
		Rows:      RoundChanges(t.Rows),
		Requested: t.Requested,
		Failed:    t.Failed,
		Dropped:   t.Dropped,
	}
}

func compositionResponse(c model.MarketComposition, at time.Time) CompositionResponse {
	resp := CompositionResponse{MarketComposition: c, GeneratedAt: at, Summaries: make([]string, 0, len(c.Buckets))}
	if !c.Empty() {
		resp.Title = FormatCompositionTitle(c, at)
	}
	for _, b := range c.Buckets {
		resp.Summaries = append(resp.Summaries, FormatBucketSummary(b))
	}
	return resp
}
