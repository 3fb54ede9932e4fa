package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"QuantSentinel/internal/model"
)

// validate caches struct metadata across calls.
var validate = validator.New()

// RSI smoothing variants.
const (
	// SmoothingWilder seeds with the mean of the first window of gains and
	// losses, then applies avg = (avg*(n-1) + x) / n.
	SmoothingWilder = "wilder"
	// SmoothingSimple uses the plain rolling mean of the last n gains and losses.
	SmoothingSimple = "simple"
)

// Analysis holds the parameters shared by the resample, indicator and signal
// stages. It is passed by value so concurrent runs never share it.
type Analysis struct {
	BucketWidth   time.Duration `yaml:"bucket_width" validate:"gt=0"`
	MAShortWindow int           `yaml:"ma_short_window" validate:"gt=0"`
	MALongWindow  int           `yaml:"ma_long_window" validate:"gt=0"`
	RSIWindow     int           `yaml:"rsi_window" validate:"gt=0"`
	RSILow        float64       `yaml:"rsi_low" validate:"gte=0,lte=100"`
	RSIHigh       float64       `yaml:"rsi_high" validate:"gte=0,lte=100,gtfield=RSILow"`
	EMAFastSpan   int           `yaml:"ema_fast_span" validate:"gt=0"`
	EMASlowSpan   int           `yaml:"ema_slow_span" validate:"gt=0"`
	EMASignalSpan int           `yaml:"ema_signal_span" validate:"gt=0"`
	RSISmoothing  string        `yaml:"rsi_smoothing" validate:"oneof=wilder simple"`
}

// DefaultAnalysis returns MA 5/50, RSI 14 (30/70), MACD 12/26/9 over hourly buckets.
func DefaultAnalysis() Analysis {
	return Analysis{
		BucketWidth:   time.Hour,
		MAShortWindow: 5,
		MALongWindow:  50,
		RSIWindow:     14,
		RSILow:        30,
		RSIHigh:       70,
		EMAFastSpan:   12,
		EMASlowSpan:   26,
		EMASignalSpan: 9,
		RSISmoothing:  SmoothingWilder,
	}
}

// Validate returns an error wrapping model.ErrConfiguration for any
// non-positive window or span, an unknown smoothing variant, or
// rsi_low >= rsi_high.
func (a Analysis) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	return nil
}
