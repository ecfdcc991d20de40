package recorder

import "time"

// Refresh kinds.
const (
	KindDashboard = "dashboard"
	KindCatalog   = "catalog"
)

// RefreshEvent describes one finished refresh pass. Only pass metadata is
// recorded; fetched market data is never persisted.
type RefreshEvent struct {
	RunID    string
	Kind     string
	Rows     int // change-table rows, or catalog symbols
	Failed   int // assets dropped
	Duration time.Duration
	Err      error
}

// Recorder keeps a log of refresh runs for later analysis.
type Recorder interface {
	RecordRefresh(evt *RefreshEvent) error
	Close() error
}
