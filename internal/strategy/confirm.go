package strategy

import "QuantSentinel/internal/model"

type cross int

const (
	crossNone cross = iota
	crossUp
	crossDown
)

// crossing classifies the move of the short average relative to the long one
// between two consecutive rows. Any undefined average means no crossing.
func crossing(prevShort, prevLong, short, long model.Value) cross {
	if prevShort.IsNone() || prevLong.IsNone() || short.IsNone() || long.IsNone() {
		return crossNone
	}
	ps, pl := prevShort.Unwrap(), prevLong.Unwrap()
	s, l := short.Unwrap(), long.Unwrap()
	switch {
	case ps <= pl && s > l:
		return crossUp
	case ps >= pl && s < l:
		return crossDown
	default:
		return crossNone
	}
}

// confirmBuy requires RSI above the low threshold and a positive histogram.
func (d *Detector) confirmBuy(row model.IndicatorRow) bool {
	return row.RSI.IsSome() && row.RSI.Unwrap() > d.rsiLow && row.MACDHist > 0
}

// confirmSell requires RSI below the high threshold and a negative histogram.
func (d *Detector) confirmSell(row model.IndicatorRow) bool {
	return row.RSI.IsSome() && row.RSI.Unwrap() < d.rsiHigh && row.MACDHist < 0
}
