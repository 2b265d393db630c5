package recorder

import (
	"time"

	"SmartPortfolio/internal/strategy"
)

// RunSnapshot is one completed refresh cycle.
type RunSnapshot struct {
	ID        string // assigned by the recorder when empty
	StartedAt time.Time
	Duration  time.Duration
	Pool      string
	Tickers   int
	Skipped   []string
	Issues    int
	Result    *strategy.Result
}

// RunSummary is a stored run without its rows.
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	Pool       string    `json:"pool"`
	State      string    `json:"state"`
	Tickers    int       `json:"tickers"`
	Scored     int       `json:"scored"`
	Allocated  int       `json:"allocated"`
	Amount     float64   `json:"amount"`
	Threshold  float64   `json:"threshold"`
	DurationMs int64     `json:"duration_ms"`
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRun(snap *RunSnapshot) (string, error)
	RecentRuns(limit int) ([]RunSummary, error)
	Close() error
}
