// Package pipeline chains aggregation, indicator computation and signal
// detection over one bar sequence.
package pipeline

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"

	"QuantSentinel/internal/calculator"
	"QuantSentinel/internal/config"
	"QuantSentinel/internal/model"
	"QuantSentinel/internal/resample"
	"QuantSentinel/internal/strategy"
)

// Aggregator collapses fine bars into buckets.
type Aggregator interface {
	Aggregate(bars []model.OHLCV) ([]model.Bucket, error)
}

// IndicatorProducer produces indicator rows from bars.
type IndicatorProducer interface {
	Compute(bars []model.OHLCV) ([]model.IndicatorRow, error)
}

// SignalDetector finds signals in indicator rows.
type SignalDetector interface {
	Detect(rows []model.IndicatorRow) (optional.Option[model.Signal], []model.Signal)
}

// Result is everything a run produces, as plain data.
type Result struct {
	Buckets []model.Bucket
	Rows    []model.IndicatorRow
	Latest  optional.Option[model.Signal]
	Signals []model.Signal
}

// Timings records how long each stage of the last run took.
type Timings struct {
	Aggregate time.Duration
	Compute   time.Duration
	Detect    time.Duration
}

// Pipeline runs the three stages in order. Its stages are stateless so one
// Pipeline may serve several symbols concurrently.
type Pipeline struct {
	Aggregator Aggregator
	Indicators IndicatorProducer
	Detector   SignalDetector
}

// New builds the default pipeline from cfg.
func New(cfg config.Analysis) (*Pipeline, error) {
	engine, err := calculator.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	detector, err := strategy.NewDetector(cfg)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Aggregator: resample.Resampler{Width: cfg.BucketWidth},
		Indicators: engine,
		Detector:   detector,
	}, nil
}

// Run feeds bars through every stage.
func (p *Pipeline) Run(bars []model.OHLCV) (*Result, error) {
	res, _, err := p.RunTimed(bars)
	return res, err
}

// RunTimed is Run plus per-stage durations.
func (p *Pipeline) RunTimed(bars []model.OHLCV) (*Result, Timings, error) {
	var tm Timings

	start := time.Now()
	buckets, err := p.Aggregator.Aggregate(bars)
	tm.Aggregate = time.Since(start)
	if err != nil {
		return nil, tm, fmt.Errorf("aggregate: %w", err)
	}

	start = time.Now()
	rows, err := p.Indicators.Compute(model.Bars(buckets))
	tm.Compute = time.Since(start)
	if err != nil {
		return nil, tm, fmt.Errorf("indicators: %w", err)
	}

	start = time.Now()
	latest, signals := p.Detector.Detect(rows)
	tm.Detect = time.Since(start)

	return &Result{
		Buckets: buckets,
		Rows:    rows,
		Latest:  latest,
		Signals: signals,
	}, tm, nil
}

// LastRows returns up to n trailing indicator rows.
func (r *Result) LastRows(n int) []model.IndicatorRow {
	if n <= 0 {
		return nil
	}
	if n >= len(r.Rows) {
		return r.Rows
	}
	return r.Rows[len(r.Rows)-n:]
}
