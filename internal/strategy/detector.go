// Package strategy turns indicator rows into confirmed BUY/SELL signals.
package strategy

import (
	"github.com/moznion/go-optional"

	"QuantSentinel/internal/config"
	"QuantSentinel/internal/model"
)

// Detector finds moving-average crossovers confirmed by RSI and the MACD
// histogram. It holds only thresholds and is safe for concurrent use.
type Detector struct {
	rsiLow  float64
	rsiHigh float64
}

// NewDetector validates cfg and returns a Detector using its RSI thresholds.
func NewDetector(cfg config.Analysis) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{rsiLow: cfg.RSILow, rsiHigh: cfg.RSIHigh}, nil
}

// Detect scans rows in order and returns the latest signal together with
// every confirmed signal. Calling it twice on the same rows gives the same
// result.
func (d *Detector) Detect(rows []model.IndicatorRow) (optional.Option[model.Signal], []model.Signal) {
	signals := make([]model.Signal, 0)
	t := d.NewTracker()
	for _, row := range rows {
		if sig := t.Observe(row); sig.IsSome() {
			signals = append(signals, sig.Unwrap())
		}
	}
	if len(signals) == 0 {
		return optional.None[model.Signal](), signals
	}
	return optional.Some(signals[len(signals)-1]), signals
}

// NewTracker returns a Tracker that evaluates rows one at a time.
func (d *Detector) NewTracker() *Tracker {
	return &Tracker{d: d}
}

// Tracker remembers the moving averages of the previous row so crossovers
// can be found across appends. It is not safe for concurrent use.
type Tracker struct {
	d         *Detector
	prevShort model.Value
	prevLong  model.Value
	seen      bool
}

// Observe evaluates row against the previous one and returns the signal it
// confirms, if any.
func (t *Tracker) Observe(row model.IndicatorRow) optional.Option[model.Signal] {
	defer func() {
		t.prevShort, t.prevLong, t.seen = row.MAShort, row.MALong, true
	}()
	if !t.seen {
		return optional.None[model.Signal]()
	}

	switch crossing(t.prevShort, t.prevLong, row.MAShort, row.MALong) {
	case crossUp:
		if t.d.confirmBuy(row) {
			return optional.Some(newSignal(row, model.DirectionBuy))
		}
	case crossDown:
		if t.d.confirmSell(row) {
			return optional.Some(newSignal(row, model.DirectionSell))
		}
	}
	return optional.None[model.Signal]()
}

// Reset forgets the previous row.
func (t *Tracker) Reset() {
	t.prevShort, t.prevLong = optional.None[float64](), optional.None[float64]()
	t.seen = false
}

func newSignal(row model.IndicatorRow, dir model.Direction) model.Signal {
	return model.Signal{Time: row.Time, Direction: dir, Price: row.Close}
}
