package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuantSentinel/internal/config"
	"QuantSentinel/internal/model"
)

var t0 = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

func barsFromCloses(closes ...float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   t0.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100,
		}
	}
	return bars
}

func newEngine(t *testing.T, mutate func(*config.Analysis)) *Engine {
	t.Helper()
	cfg := config.DefaultAnalysis()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func TestNewEngine_RejectsBadConfig(t *testing.T) {
	tests := map[string]func(*config.Analysis){
		"zero short window": func(a *config.Analysis) { a.MAShortWindow = 0 },
		"negative rsi":      func(a *config.Analysis) { a.RSIWindow = -3 },
		"zero signal span":  func(a *config.Analysis) { a.EMASignalSpan = 0 },
		"low equals high":   func(a *config.Analysis) { a.RSILow, a.RSIHigh = 50, 50 },
		"low above high":    func(a *config.Analysis) { a.RSILow, a.RSIHigh = 80, 20 },
		"unknown smoothing": func(a *config.Analysis) { a.RSISmoothing = "ema" },
		"zero bucket width": func(a *config.Analysis) { a.BucketWidth = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := config.DefaultAnalysis()
			mutate(&cfg)
			e, err := NewEngine(cfg)
			assert.ErrorIs(t, err, model.ErrConfiguration)
			assert.Nil(t, e)
		})
	}
}

func TestCompute_Empty(t *testing.T) {
	rows, err := newEngine(t, nil).Compute(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCompute_RejectsUnordered(t *testing.T) {
	e := newEngine(t, nil)
	bars := barsFromCloses(1, 2)
	bars[1].Time = bars[0].Time

	rows, err := e.Compute(bars)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Nil(t, rows)

	bars[1].Time = bars[0].Time.Add(-time.Minute)
	_, err = e.Compute(bars)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestCompute_LongMAWarmUp(t *testing.T) {
	e := newEngine(t, nil)
	w := e.Config().MALongWindow

	closes := make([]float64, w)
	sum := 0.0
	for i := range closes {
		closes[i] = 100 + float64(i%9)*1.25
		sum += closes[i]
	}

	rows, err := e.Compute(barsFromCloses(closes[:w-1]...))
	require.NoError(t, err)
	require.Len(t, rows, w-1)
	for i, r := range rows {
		assert.True(t, r.MALong.IsNone(), "row %d", i)
	}

	rows, err = e.Compute(barsFromCloses(closes...))
	require.NoError(t, err)
	require.Len(t, rows, w)
	last := rows[w-1].MALong
	require.True(t, last.IsSome())
	assert.InDelta(t, sum/float64(w), last.Unwrap(), 1e-9)
}

func TestCompute_ShortMA(t *testing.T) {
	e := newEngine(t, func(a *config.Analysis) { a.MAShortWindow = 3 })
	rows, err := e.Compute(barsFromCloses(1, 2, 3, 4, 10))
	require.NoError(t, err)

	assert.True(t, rows[0].MAShort.IsNone())
	assert.True(t, rows[1].MAShort.IsNone())
	assert.InDelta(t, 2.0, rows[2].MAShort.Unwrap(), 1e-12)
	assert.InDelta(t, 3.0, rows[3].MAShort.Unwrap(), 1e-12)
	assert.InDelta(t, 17.0/3.0, rows[4].MAShort.Unwrap(), 1e-12)
}

func TestCompute_ConstantPriceSteadyState(t *testing.T) {
	const c = 3517.25
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = c
	}
	rows, err := newEngine(t, nil).Compute(barsFromCloses(closes...))
	require.NoError(t, err)

	for i, r := range rows {
		assert.Equal(t, c, r.EMAFast, "row %d", i)
		assert.Equal(t, c, r.EMASlow, "row %d", i)
		assert.Equal(t, 0.0, r.MACD, "row %d", i)
		assert.Equal(t, 0.0, r.MACDSignal, "row %d", i)
		assert.Equal(t, 0.0, r.MACDHist, "row %d", i)
	}
}

func TestCompute_RSIWarmUp(t *testing.T) {
	e := newEngine(t, nil)
	w := e.Config().RSIWindow

	closes := make([]float64, w+5)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	rows, err := e.Compute(barsFromCloses(closes...))
	require.NoError(t, err)

	for i := 0; i < w; i++ {
		assert.True(t, rows[i].RSI.IsNone(), "row %d", i)
	}
	for i := w; i < len(rows); i++ {
		require.True(t, rows[i].RSI.IsSome(), "row %d", i)
		assert.Equal(t, 100.0, rows[i].RSI.Unwrap(), "row %d", i)
	}
}

func TestCompute_RSIVariants(t *testing.T) {
	closes := []float64{10, 11, 10, 12}

	wilder := newEngine(t, func(a *config.Analysis) { a.RSIWindow = 2 })
	rows, err := wilder.Compute(barsFromCloses(closes...))
	require.NoError(t, err)
	assert.True(t, rows[1].RSI.IsNone())
	assert.InDelta(t, 50.0, rows[2].RSI.Unwrap(), 1e-9)
	// avg gain (0.5+2)/2 = 1.25, avg loss (0.5+0)/2 = 0.25
	assert.InDelta(t, 100-100/6.0, rows[3].RSI.Unwrap(), 1e-9)

	simple := newEngine(t, func(a *config.Analysis) {
		a.RSIWindow = 2
		a.RSISmoothing = config.SmoothingSimple
	})
	rows, err = simple.Compute(barsFromCloses(closes...))
	require.NoError(t, err)
	assert.True(t, rows[1].RSI.IsNone())
	assert.InDelta(t, 50.0, rows[2].RSI.Unwrap(), 1e-9)
	// gains {0, 2}, losses {1, 0}
	assert.InDelta(t, 100-100/3.0, rows[3].RSI.Unwrap(), 1e-9)
}

func TestCompute_RSIBounded(t *testing.T) {
	closes := make([]float64, 200)
	p := 500.0
	for i := range closes {
		p += float64((i*37)%11) - 5
		closes[i] = p
	}
	rows, err := newEngine(t, nil).Compute(barsFromCloses(closes...))
	require.NoError(t, err)
	for _, r := range rows {
		if r.RSI.IsSome() {
			v := r.RSI.Unwrap()
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}
}

func TestCompute_MACDRecurrence(t *testing.T) {
	e := newEngine(t, nil)
	rows, err := e.Compute(barsFromCloses(10, 12, 11, 15))
	require.NoError(t, err)

	fa, sa, ga := 2.0/13, 2.0/27, 2.0/10
	fast, slow := 10.0, 10.0
	signal := 0.0
	for i, r := range rows {
		if i > 0 {
			fast = fa*r.Close + (1-fa)*fast
			slow = sa*r.Close + (1-sa)*slow
			signal = ga*(fast-slow) + (1-ga)*signal
		}
		assert.InDelta(t, fast, r.EMAFast, 1e-9, "row %d", i)
		assert.InDelta(t, slow, r.EMASlow, 1e-9, "row %d", i)
		assert.InDelta(t, fast-slow, r.MACD, 1e-9, "row %d", i)
		assert.InDelta(t, signal, r.MACDSignal, 1e-9, "row %d", i)
		assert.InDelta(t, fast-slow-signal, r.MACDHist, 1e-9, "row %d", i)
	}
}

func TestSeries_MatchesCompute(t *testing.T) {
	e := newEngine(t, func(a *config.Analysis) { a.MALongWindow = 8 })
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 200 + float64((i*13)%17)
	}
	bars := barsFromCloses(closes...)

	want, err := e.Compute(bars)
	require.NoError(t, err)

	s := e.NewSeries()
	for i, b := range bars {
		got, err := s.Update(b)
		require.NoError(t, err)
		assert.Equal(t, want[i], got)
	}
	assert.Equal(t, len(bars), s.Len())

	_, err = s.Update(bars[len(bars)-1])
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Equal(t, len(bars), s.Len())
}
