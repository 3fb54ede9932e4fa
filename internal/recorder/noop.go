package recorder

import (
	"context"

	"QuantSentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, *Run) error { return nil }

// RecordSignals stores nothing, so no signal is ever new.
func (n *NoopRecorder) RecordSignals(context.Context, string, []model.Signal) (int, error) {
	return 0, nil
}

func (n *NoopRecorder) RecordIndicators(context.Context, string, []model.IndicatorRow) error {
	return nil
}

func (n *NoopRecorder) RecentSignals(context.Context, string, int) ([]model.Signal, error) {
	return nil, nil
}

func (n *NoopRecorder) Close() error { return nil }
