// Package metrics holds the Prometheus collectors for handshake outcomes
// and upstream provider latency.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the handshake collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	handshakes *prometheus.CounterVec
	upstream   *prometheus.HistogramVec
	gatherer   prometheus.Gatherer
}

// NewRecorder registers the collectors on a fresh registry (plus Go/process
// collectors) and returns the Recorder.
func NewRecorder() (*Recorder, error) {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ferry_handshakes_total",
			Help: "Handshake legs by provider, phase and outcome",
		}, []string{"provider", "phase", "outcome"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ferry_upstream_duration_seconds",
			Help:    "Latency of outbound calls to providers",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider", "call"}),
		gatherer: reg,
	}
	for _, c := range []prometheus.Collector{
		r.handshakes,
		r.upstream,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Handshake counts one finished leg. outcome is "ok" or an error kind.
func (r *Recorder) Handshake(provider, phase, outcome string) {
	if r == nil {
		return
	}
	r.handshakes.WithLabelValues(provider, phase, outcome).Inc()
}

// ObserveUpstream records how long an outbound provider call took.
func (r *Recorder) ObserveUpstream(provider, call string, d time.Duration) {
	if r == nil {
		return
	}
	r.upstream.WithLabelValues(provider, call).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
