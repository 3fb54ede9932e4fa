package calculator

import (
	"github.com/moznion/go-optional"

	"QuantSentinel/internal/model"
)

// SMA is a simple moving average over the last n closes.
type SMA struct {
	window []float64
	n      int
	next   int
	count  int
}

// NewSMA returns an SMA over n values. n must be positive.
func NewSMA(n int) *SMA {
	return &SMA{window: make([]float64, n), n: n}
}

// Update adds v and returns the mean of the trailing n values, or None until
// n values have been seen.
func (s *SMA) Update(v float64) model.Value {
	s.window[s.next] = v
	s.next = (s.next + 1) % s.n
	if s.count < s.n {
		s.count++
	}
	if s.count < s.n {
		return optional.None[float64]()
	}
	// Sum the buffer rather than keeping a running total.
	sum := 0.0
	for _, x := range s.window {
		sum += x
	}
	return optional.Some(sum / float64(s.n))
}
