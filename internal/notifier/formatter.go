package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"QuantSentinel/internal/collector"
	"QuantSentinel/internal/model"
)

const (
	timeLayout       = "2006-01-02 15:04"
	reportSignals    = 10
	reportIndicators = 3
)

// Report is what a per-symbol summary needs.
type Report struct {
	Symbol     string
	Source     string
	MinuteBars int
	Buckets    int
	Latest     *model.Signal
	Signals    []model.Signal
	Rows       []model.IndicatorRow
	FetchedAt  time.Time
}

func price(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(2)
}

func value(v model.Value) string {
	if v.IsNone() {
		return "n/a"
	}
	return decimal.NewFromFloat(v.Unwrap()).StringFixed(2)
}

func arrow(d model.Direction) string {
	if d == model.DirectionBuy {
		return "🟢"
	}
	return "🔴"
}

// FormatSignalAlert formats a freshly detected signal.
func FormatSignalAlert(symbol string, sig model.Signal, row model.IndicatorRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s %s</b> @ %s\n", arrow(sig.Direction), sig.Direction, html.EscapeString(symbol), price(sig.Price))
	fmt.Fprintf(&b, "Bar: %s\n", sig.Time.Format(timeLayout))
	fmt.Fprintf(&b, "MA short/long: %s / %s\n", value(row.MAShort), value(row.MALong))
	fmt.Fprintf(&b, "RSI: %s\n", value(row.RSI))
	fmt.Fprintf(&b, "MACD: %s | signal %s | hist %s\n",
		decimal.NewFromFloat(row.MACD).StringFixed(4),
		decimal.NewFromFloat(row.MACDSignal).StringFixed(4),
		decimal.NewFromFloat(row.MACDHist).StringFixed(4))
	return b.String()
}

// FormatSignals lists up to the last 10 signals, newest first.
func FormatSignals(symbol string, signals []model.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📜 <b>%s signals</b> (last %d)\n", html.EscapeString(symbol), reportSignals)
	if len(signals) == 0 {
		b.WriteString("No signals yet.\n")
		return b.String()
	}
	sorted := make([]model.Signal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.After(sorted[j].Time) })
	if len(sorted) > reportSignals {
		sorted = sorted[:reportSignals]
	}
	for _, s := range sorted {
		fmt.Fprintf(&b, "%s %s  %-4s %s\n", arrow(s.Direction), s.Time.Format(timeLayout), s.Direction, price(s.Price))
	}
	return b.String()
}

// FormatIndicators shows the trailing indicator rows, oldest first.
func FormatIndicators(symbol string, rows []model.IndicatorRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 <b>%s indicators</b> (last %d rows)\n", html.EscapeString(symbol), reportIndicators)
	if len(rows) > reportIndicators {
		rows = rows[len(rows)-reportIndicators:]
	}
	if len(rows) == 0 {
		b.WriteString("No data.\n")
		return b.String()
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%s close %s | MA %s/%s | RSI %s | hist %s\n",
			r.Time.Format(timeLayout), price(r.Close), value(r.MAShort), value(r.MALong), value(r.RSI),
			decimal.NewFromFloat(r.MACDHist).StringFixed(4))
	}
	return b.String()
}

// FormatReport formats the full per-symbol summary.
func FormatReport(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s</b> | %s\n", html.EscapeString(r.Symbol), r.FetchedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Source: %s | minute bars: %d | buckets: %d\n\n", r.Source, r.MinuteBars, r.Buckets)

	b.WriteString("<b>Latest signal</b>\n")
	if r.Latest != nil {
		fmt.Fprintf(&b, "%s %s @ %s\nSignal time: %s\n", arrow(r.Latest.Direction), r.Latest.Direction,
			price(r.Latest.Price), r.Latest.Time.Format(timeLayout))
	} else {
		b.WriteString("No BUY/SELL signal detected in the recent bars.\n")
	}
	b.WriteString("\n")
	b.WriteString(FormatSignals(r.Symbol, r.Signals))
	b.WriteString("\n")
	b.WriteString(FormatIndicators(r.Symbol, r.Rows))
	return b.String()
}

// ReportFromSnapshot builds a Report from a refresh result.
func ReportFromSnapshot(snap *collector.Snapshot) Report {
	r := Report{
		Symbol:     snap.Symbol,
		Source:     snap.Source,
		MinuteBars: snap.MinuteBars,
		FetchedAt:  snap.FetchedAt,
	}
	if res := snap.Result; res != nil {
		r.Buckets = len(res.Buckets)
		r.Signals = res.Signals
		r.Rows = res.LastRows(reportIndicators)
		if res.Latest.IsSome() {
			latest := res.Latest.Unwrap()
			r.Latest = &latest
		}
	}
	return r
}
