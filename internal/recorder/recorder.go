package recorder

import (
	"context"
	"time"

	"QuantSentinel/internal/model"
)

// Run describes one refresh of one symbol.
type Run struct {
	ID         string
	Symbol     string
	Source     string
	MinuteBars int
	Buckets    int
	Signals    int
	StartedAt  time.Time
	FinishedAt time.Time
	Err        string // empty on success
}

// Recorder persists refresh history, signals and indicator rows.
type Recorder interface {
	RecordRun(ctx context.Context, run *Run) error
	// RecordSignals stores signals that are not yet known for symbol and
	// returns how many were new.
	RecordSignals(ctx context.Context, symbol string, signals []model.Signal) (int, error)
	// RecordIndicators upserts rows keyed by symbol and bucket time.
	RecordIndicators(ctx context.Context, symbol string, rows []model.IndicatorRow) error
	// RecentSignals returns up to limit signals for symbol, newest first.
	RecentSignals(ctx context.Context, symbol string, limit int) ([]model.Signal, error)
	Close() error
}
