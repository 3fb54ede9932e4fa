package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns sample values keyed by metric name and the symbol or
// stage label, summed across the remaining labels.
func gathered(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "symbol" || lp.GetName() == "stage" {
					key += "/" + lp.GetValue()
				}
			}
			switch {
			case m.GetCounter() != nil:
				out[key] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestCollectorsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Refreshed("RELIANCE.NS", "yahoo", "ok")
	m.Refreshed("RELIANCE.NS", "synthetic", "ok")
	m.SignalsRecorded("RELIANCE.NS", "BUY", 3)
	m.SignalsRecorded("RELIANCE.NS", "SELL", 0)
	m.SetBuckets("RELIANCE.NS", 168)
	m.ObserveStage("aggregate", 2*time.Millisecond)
	m.ObserveStage("aggregate", 3*time.Millisecond)

	got := gathered(t, reg)
	assert.Equal(t, 2.0, got["quantsentinel_refreshes_total/RELIANCE.NS"])
	assert.Equal(t, 3.0, got["quantsentinel_signals_total/RELIANCE.NS"])
	assert.Equal(t, 168.0, got["quantsentinel_buckets/RELIANCE.NS"])
	assert.Equal(t, 2.0, got["quantsentinel_stage_duration_seconds/aggregate"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Refreshed("X", "synthetic", "ok")
		m.SignalsRecorded("X", "BUY", 1)
		m.SetBuckets("X", 1)
		m.ObserveStage("detect", time.Second)
	})
}

func TestServe(t *testing.T) {
	srv := Serve("127.0.0.1:0", prometheus.NewRegistry())
	defer srv.Close()
	assert.NotNil(t, srv.Handler)
}
