package model

import (
	"fmt"
	"math"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Bucket is an aggregated bar. Time is the right-closed end of the bucket and
// Count is the number of input bars merged into it.
type Bucket struct {
	OHLCV
	Count int `json:"count"`
}

// Bars returns the plain bars of a bucket sequence.
func Bars(buckets []Bucket) []OHLCV {
	bars := make([]OHLCV, len(buckets))
	for i, b := range buckets {
		bars[i] = b.OHLCV
	}
	return bars
}

// Validate reports whether a single bar is well formed.
func (b OHLCV) Validate() error {
	if b.Time.IsZero() {
		return fmt.Errorf("%w: bar has no timestamp", ErrInvalidInput)
	}
	for _, p := range [...]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: bar at %s has non-finite price", ErrInvalidInput, b.Time.Format(time.RFC3339))
		}
	}
	if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
		return fmt.Errorf("%w: bar at %s has invalid volume %v", ErrInvalidInput, b.Time.Format(time.RFC3339), b.Volume)
	}
	return nil
}

// CheckSeries validates every bar and requires strictly increasing timestamps.
func CheckSeries(bars []OHLCV) error {
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("%w: bar %d at %s is not after %s", ErrInvalidInput, i,
				b.Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}
