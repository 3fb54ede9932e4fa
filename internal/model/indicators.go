package model

import "github.com/moznion/go-optional"

// Value is an indicator cell. None means the window has not filled yet,
// which is different from a computed zero.
type Value = optional.Option[float64]

// IndicatorRow is an aggregated bar extended with its derived series.
type IndicatorRow struct {
	OHLCV
	MAShort    Value   `json:"ma_short"`
	MALong     Value   `json:"ma_long"`
	RSI        Value   `json:"rsi"`
	EMAFast    float64 `json:"ema_fast"`
	EMASlow    float64 `json:"ema_slow"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
}
