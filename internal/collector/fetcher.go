package collector

import (
	"context"

	"QuantSentinel/internal/model"
)

// Fetcher defines the interface for fetching minute bars.
type Fetcher interface {
	// FetchMinuteBars returns up to days of one-minute bars for symbol with
	// strictly increasing timestamps.
	FetchMinuteBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	Name() string
}
