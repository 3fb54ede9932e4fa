package calculator

// EMA is an exponential moving average seeded with its first input.
type EMA struct {
	alpha   float64
	value   float64
	started bool
}

// NewEMA returns an EMA with alpha = 2/(span+1).
func NewEMA(span int) *EMA {
	return &EMA{alpha: 2.0 / float64(span+1)}
}

// Update adds v and returns the new average.
func (e *EMA) Update(v float64) float64 {
	if !e.started {
		e.value = v
		e.started = true
		return e.value
	}
	// Same recurrence as alpha*v + (1-alpha)*prev, but exact when v == prev.
	e.value += e.alpha * (v - e.value)
	return e.value
}

// MACD tracks the fast and slow EMAs of a price and the signal EMA of their
// difference.
type MACD struct {
	fast, slow, signal *EMA
}

// MACDPoint is one step of a MACD computation.
type MACDPoint struct {
	Fast, Slow float64
	Value      float64
	Signal     float64
	Hist       float64
}

// NewMACD returns a MACD with the given spans.
func NewMACD(fastSpan, slowSpan, signalSpan int) *MACD {
	return &MACD{
		fast:   NewEMA(fastSpan),
		slow:   NewEMA(slowSpan),
		signal: NewEMA(signalSpan),
	}
}

// Update adds a close and returns every MACD component for it.
func (m *MACD) Update(close float64) MACDPoint {
	p := MACDPoint{Fast: m.fast.Update(close), Slow: m.slow.Update(close)}
	p.Value = p.Fast - p.Slow
	p.Signal = m.signal.Update(p.Value)
	p.Hist = p.Value - p.Signal
	return p
}
