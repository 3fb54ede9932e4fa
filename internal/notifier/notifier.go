// Package notifier delivers signals and reports to chat and message bus
// subscribers.
package notifier

import (
	"context"
	"errors"

	"QuantSentinel/internal/model"
)

// SignalNotifier announces a newly detected signal. row is the indicator row
// the signal was confirmed on.
type SignalNotifier interface {
	NotifySignal(ctx context.Context, symbol string, sig model.Signal, row model.IndicatorRow) error
}

// Multi fans a signal out to every notifier and joins their errors.
type Multi []SignalNotifier

func (m Multi) NotifySignal(ctx context.Context, symbol string, sig model.Signal, row model.IndicatorRow) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifySignal(ctx, symbol, sig, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
