package collector

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"QuantSentinel/internal/model"
)

const syntheticBasePrice = 3500.0

// SyntheticFetcher generates a random-walk minute series. It stands in when
// live data is disabled or unavailable.
type SyntheticFetcher struct {
	// Seed makes the series reproducible; zero picks a seed from the clock.
	Seed uint64
	// Now returns the end of the series. Defaults to time.Now.
	Now func() time.Time
}

func (f *SyntheticFetcher) Name() string { return "synthetic" }

// FetchMinuteBars returns days*1440 consecutive minute bars ending at the
// current minute.
func (f *SyntheticFetcher) FetchMinuteBars(ctx context.Context, _ string, days int) ([]model.OHLCV, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", model.ErrInvalidInput, days)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	seed := f.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	n := days * 24 * 60
	end := now().UTC().Truncate(time.Minute)
	start := end.Add(-time.Duration(n-1) * time.Minute)

	bars := make([]model.OHLCV, n)
	walk := 0.0
	for i := range bars {
		walk += math.Max(-3, math.Min(3, rng.NormFloat64()))
		open := syntheticBasePrice + walk*0.5
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   open,
			High:   open + rng.Float64(),
			Low:    open - rng.Float64(),
			Close:  open + rng.NormFloat64()*0.2,
			Volume: math.Floor(rng.Float64() * 1000),
		}
	}
	return bars, nil
}
