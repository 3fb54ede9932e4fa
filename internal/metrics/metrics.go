// Package metrics holds the Prometheus collectors of the sentinel.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Refreshes     *prometheus.CounterVec   // symbol, source, status
	Signals       *prometheus.CounterVec   // symbol, direction
	StageDuration *prometheus.HistogramVec // stage
	Buckets       *prometheus.GaugeVec     // symbol
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quantsentinel_refreshes_total",
			Help: "Symbol refreshes by data source and outcome",
		}, []string{"symbol", "source", "status"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quantsentinel_signals_total",
			Help: "Newly recorded signals",
		}, []string{"symbol", "direction"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quantsentinel_stage_duration_seconds",
			Help:    "Duration of each refresh stage",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"stage"}),
		Buckets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quantsentinel_buckets",
			Help: "Aggregated buckets in the latest refresh",
		}, []string{"symbol"}),
	}
	reg.MustRegister(m.Refreshes, m.Signals, m.StageDuration, m.Buckets)
	return m
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Refreshed counts one refresh of symbol.
func (m *Metrics) Refreshed(symbol, source, status string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(symbol, source, status).Inc()
}

// SignalsRecorded adds n new signals for symbol.
func (m *Metrics) SignalsRecorded(symbol, direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Signals.WithLabelValues(symbol, direction).Add(float64(n))
}

// SetBuckets sets the bucket gauge of symbol.
func (m *Metrics) SetBuckets(symbol string, n int) {
	if m == nil {
		return
	}
	m.Buckets.WithLabelValues(symbol).Set(float64(n))
}

// Serve exposes /metrics for g on addr in the background.
func Serve(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
