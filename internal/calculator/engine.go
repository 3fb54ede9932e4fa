// Package calculator derives moving averages, RSI and MACD from aggregated bars.
package calculator

import (
	"fmt"
	"time"

	"QuantSentinel/internal/config"
	"QuantSentinel/internal/model"
)

// Engine computes indicator rows for a bar sequence. It holds only the
// analysis parameters and is safe for concurrent use.
type Engine struct {
	cfg config.Analysis
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg config.Analysis) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the parameters the engine was built with.
func (e *Engine) Config() config.Analysis {
	return e.cfg
}

// Compute returns one indicator row per input bar, in the same order.
// It fails without partial output when bars are malformed or unordered.
func (e *Engine) Compute(bars []model.OHLCV) ([]model.IndicatorRow, error) {
	if err := model.CheckSeries(bars); err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}
	s := e.NewSeries()
	rows := make([]model.IndicatorRow, 0, len(bars))
	for _, b := range bars {
		row, err := s.Update(b)
		if err != nil {
			return nil, fmt.Errorf("compute indicators: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NewSeries returns empty rolling state for one symbol.
func (e *Engine) NewSeries() *Series {
	return &Series{
		maShort: NewSMA(e.cfg.MAShortWindow),
		maLong:  NewSMA(e.cfg.MALongWindow),
		rsi:     NewRSI(e.cfg.RSIWindow, e.cfg.RSISmoothing),
		macd:    NewMACD(e.cfg.EMAFastSpan, e.cfg.EMASlowSpan, e.cfg.EMASignalSpan),
	}
}

// Series carries the rolling indicator state of a single bar stream.
// It is not safe for concurrent use.
type Series struct {
	maShort, maLong *SMA
	rsi             *RSI
	macd            *MACD
	last            time.Time
	rows            int
}

// Update consumes the next bar and returns its indicator row. Bars must
// arrive with strictly increasing timestamps; a rejected bar leaves the
// state unchanged.
func (s *Series) Update(bar model.OHLCV) (model.IndicatorRow, error) {
	if err := bar.Validate(); err != nil {
		return model.IndicatorRow{}, err
	}
	if s.rows > 0 && !bar.Time.After(s.last) {
		return model.IndicatorRow{}, fmt.Errorf("%w: bar at %s is not after %s", model.ErrInvalidInput,
			bar.Time.Format(time.RFC3339), s.last.Format(time.RFC3339))
	}
	s.last = bar.Time
	s.rows++

	m := s.macd.Update(bar.Close)
	return model.IndicatorRow{
		OHLCV:      bar,
		MAShort:    s.maShort.Update(bar.Close),
		MALong:     s.maLong.Update(bar.Close),
		RSI:        s.rsi.Update(bar.Close),
		EMAFast:    m.Fast,
		EMASlow:    m.Slow,
		MACD:       m.Value,
		MACDSignal: m.Signal,
		MACDHist:   m.Hist,
	}, nil
}

// Len returns the number of bars consumed so far.
func (s *Series) Len() int {
	return s.rows
}
