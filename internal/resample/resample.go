// Package resample groups fine-grained bars into fixed-width time buckets.
//
// Buckets are right-closed and right-labelled on a grid anchored at the Unix
// epoch: a bar at t belongs to the bucket ending at the smallest multiple of
// the width that is >= t. Buckets that receive no bars are never emitted.
package resample

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"

	"QuantSentinel/internal/model"
)

// Aggregate collapses bars into buckets of the given width.
// Bars must have strictly increasing timestamps. An empty input yields an
// empty, non-nil result.
func Aggregate(bars []model.OHLCV, width time.Duration) ([]model.Bucket, error) {
	b, err := NewBucketer(width)
	if err != nil {
		return nil, err
	}
	if err := model.CheckSeries(bars); err != nil {
		return nil, err
	}

	buckets := make([]model.Bucket, 0)
	for _, bar := range bars {
		closed, err := b.Add(bar)
		if err != nil {
			return nil, err
		}
		if closed.IsSome() {
			buckets = append(buckets, closed.Unwrap())
		}
	}
	if last := b.Flush(); last.IsSome() {
		buckets = append(buckets, last.Unwrap())
	}
	return buckets, nil
}

// BucketEnd returns the label of the bucket that t falls into.
func BucketEnd(t time.Time, width time.Duration) time.Time {
	ns := t.UnixNano()
	w := int64(width)
	r := ns % w
	if r == 0 {
		return t.Round(0)
	}
	end := ns - r
	if r > 0 {
		end += w
	}
	return time.Unix(0, end).In(t.Location())
}

// Resampler binds a bucket width so it can be passed around as a stage.
type Resampler struct {
	Width time.Duration
}

// Aggregate implements the pipeline aggregation stage.
func (r Resampler) Aggregate(bars []model.OHLCV) ([]model.Bucket, error) {
	return Aggregate(bars, r.Width)
}

// Bucketer is the streaming form of Aggregate: it holds the open bucket of
// one symbol and closes it when a bar for a later bucket arrives.
// It is not safe for concurrent use.
type Bucketer struct {
	width time.Duration
	open  bool
	cur   model.Bucket
	last  time.Time
}

// NewBucketer creates a Bucketer for the given width.
func NewBucketer(width time.Duration) (*Bucketer, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: bucket width must be positive, got %s", model.ErrConfiguration, width)
	}
	return &Bucketer{width: width}, nil
}

// Add incorporates bar and returns the bucket it closed, if any.
func (b *Bucketer) Add(bar model.OHLCV) (optional.Option[model.Bucket], error) {
	if err := bar.Validate(); err != nil {
		return nil, err
	}
	if !b.last.IsZero() && !bar.Time.After(b.last) {
		return nil, fmt.Errorf("%w: bar at %s is not after %s", model.ErrInvalidInput,
			bar.Time.Format(time.RFC3339), b.last.Format(time.RFC3339))
	}
	b.last = bar.Time

	end := BucketEnd(bar.Time, b.width)
	if b.open && end.Equal(b.cur.Time) {
		c := &b.cur
		if bar.High > c.High {
			c.High = bar.High
		}
		if bar.Low < c.Low {
			c.Low = bar.Low
		}
		c.Close = bar.Close
		c.Volume += bar.Volume
		c.Count++
		return optional.None[model.Bucket](), nil
	}

	closed := optional.None[model.Bucket]()
	if b.open {
		closed = optional.Some(b.cur)
	}
	b.cur = model.Bucket{
		OHLCV: model.OHLCV{
			Time:   end,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		},
		Count: 1,
	}
	b.open = true
	return closed, nil
}

// Flush returns the open bucket, if any, and resets the bucketer's bucket
// state. The last seen timestamp is kept so ordering is still enforced.
func (b *Bucketer) Flush() optional.Option[model.Bucket] {
	if !b.open {
		return optional.None[model.Bucket]()
	}
	b.open = false
	return optional.Some(b.cur)
}
