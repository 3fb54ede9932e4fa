package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"QuantSentinel/internal/metrics"
	"QuantSentinel/internal/model"
	"QuantSentinel/internal/pipeline"
)

// Snapshot is the outcome of one refresh of one symbol.
type Snapshot struct {
	Symbol     string
	Source     string
	MinuteBars int
	Result     *pipeline.Result
	FetchedAt  time.Time
}

// Collector fetches minute bars and runs them through the pipeline.
type Collector struct {
	Live     Fetcher // nil disables live data
	Fallback Fetcher
	Pipeline *pipeline.Pipeline
	Days     int
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(live, fallback Fetcher, p *pipeline.Pipeline, days int, m *metrics.Metrics, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		Live:     live,
		Fallback: fallback,
		Pipeline: p,
		Days:     days,
		Metrics:  m,
		Logger:   logger,
	}
}

// Collect fetches bars for symbol and computes indicators and signals.
// A failing or empty live fetch falls back to the fallback fetcher.
func (c *Collector) Collect(ctx context.Context, symbol string) (*Snapshot, error) {
	start := time.Now()
	fetcher, bars, err := c.fetch(ctx, symbol)
	c.Metrics.ObserveStage("fetch", time.Since(start))
	if err != nil {
		c.Metrics.Refreshed(symbol, "none", "error")
		return nil, err
	}

	res, tm, err := c.Pipeline.RunTimed(bars)
	c.Metrics.ObserveStage("aggregate", tm.Aggregate)
	c.Metrics.ObserveStage("compute", tm.Compute)
	c.Metrics.ObserveStage("detect", tm.Detect)
	if err != nil {
		c.Metrics.Refreshed(symbol, fetcher.Name(), "error")
		return nil, fmt.Errorf("analyze %s: %w", symbol, err)
	}
	c.Metrics.Refreshed(symbol, fetcher.Name(), "ok")
	c.Metrics.SetBuckets(symbol, len(res.Buckets))

	c.Logger.Debug("collected",
		zap.String("symbol", symbol),
		zap.String("source", fetcher.Name()),
		zap.Int("minute_bars", len(bars)),
		zap.Int("buckets", len(res.Buckets)),
		zap.Int("signals", len(res.Signals)),
	)
	return &Snapshot{
		Symbol:     symbol,
		Source:     fetcher.Name(),
		MinuteBars: len(bars),
		Result:     res,
		FetchedAt:  time.Now(),
	}, nil
}

func (c *Collector) fetch(ctx context.Context, symbol string) (Fetcher, []model.OHLCV, error) {
	if c.Live != nil {
		bars, err := c.Live.FetchMinuteBars(ctx, symbol, c.Days)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			c.Logger.Warn("live fetch failed, using fallback data",
				zap.String("symbol", symbol), zap.String("fetcher", c.Live.Name()), zap.Error(err))
		case len(bars) == 0:
			c.Logger.Warn("live fetch returned no data, using fallback data",
				zap.String("symbol", symbol), zap.String("fetcher", c.Live.Name()))
		default:
			return c.Live, bars, nil
		}
	}
	if c.Fallback == nil {
		return nil, nil, fmt.Errorf("fetch %s: no data source available", symbol)
	}
	bars, err := c.Fallback.FetchMinuteBars(ctx, symbol, c.Days)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s from %s: %w", symbol, c.Fallback.Name(), err)
	}
	return c.Fallback, bars, nil
}
