package calculator

import (
	"github.com/moznion/go-optional"

	"QuantSentinel/internal/config"
	"QuantSentinel/internal/model"
)

// RSI is a relative strength index over n close-to-close changes.
//
// With Wilder smoothing the averages are seeded with the simple mean of the
// first n gains and losses and then updated as avg = (avg*(n-1) + x) / n.
// With simple smoothing they are the plain mean of the last n gains and
// losses. Either way the first value is produced on the (n+1)th close.
type RSI struct {
	n      int
	wilder bool

	prev    float64
	started bool
	changes int

	avgGain, avgLoss float64

	// simple variant ring buffers
	gains, losses []float64
	next          int
}

// NewRSI returns an RSI over n changes using the given smoothing variant.
func NewRSI(n int, smoothing string) *RSI {
	r := &RSI{n: n, wilder: smoothing != config.SmoothingSimple}
	if !r.wilder {
		r.gains = make([]float64, n)
		r.losses = make([]float64, n)
	}
	return r
}

// Update adds a close and returns the current RSI, or None during warm-up.
func (r *RSI) Update(close float64) model.Value {
	if !r.started {
		r.prev = close
		r.started = true
		return optional.None[float64]()
	}

	change := close - r.prev
	r.prev = close
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}
	r.changes++

	if r.wilder {
		return r.updateWilder(gain, loss)
	}
	return r.updateSimple(gain, loss)
}

func (r *RSI) updateWilder(gain, loss float64) model.Value {
	n := float64(r.n)
	switch {
	case r.changes < r.n:
		r.avgGain += gain
		r.avgLoss += loss
		return optional.None[float64]()
	case r.changes == r.n:
		r.avgGain = (r.avgGain + gain) / n
		r.avgLoss = (r.avgLoss + loss) / n
	default:
		r.avgGain = (r.avgGain*(n-1) + gain) / n
		r.avgLoss = (r.avgLoss*(n-1) + loss) / n
	}
	return optional.Some(rsiFrom(r.avgGain, r.avgLoss))
}

func (r *RSI) updateSimple(gain, loss float64) model.Value {
	r.gains[r.next] = gain
	r.losses[r.next] = loss
	r.next = (r.next + 1) % r.n
	if r.changes < r.n {
		return optional.None[float64]()
	}
	var sumGain, sumLoss float64
	for i := range r.gains {
		sumGain += r.gains[i]
		sumLoss += r.losses[i]
	}
	n := float64(r.n)
	return optional.Some(rsiFrom(sumGain/n, sumLoss/n))
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
