// Package metrics exposes gateway counters over a dedicated prometheus
// registry so tests can assert on values without touching process globals.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SessionsActive      prometheus.Gauge
	SessionsTotal       prometheus.Counter
	AudioBytesTotal     prometheus.Counter
	TurnsTotal          prometheus.Counter
	RepliesTotal        *prometheus.CounterVec
	UpstreamErrorsTotal *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "buddy_sessions_active",
			Help: "Number of live voice sessions.",
		}),
		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buddy_sessions_total",
			Help: "Total sessions created since start.",
		}),
		AudioBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buddy_audio_bytes_total",
			Help: "Raw audio bytes ingested from clients.",
		}),
		TurnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buddy_turns_total",
			Help: "Finalized speech turns that triggered a reply.",
		}),
		RepliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buddy_replies_total",
			Help: "Replies generated, labeled by intent.",
		}, []string{"intent"}),
		UpstreamErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buddy_upstream_errors_total",
			Help: "Upstream collaborator failures, labeled by service.",
		}, []string{"service"}),
	}
	reg.MustRegister(
		m.SessionsActive,
		m.SessionsTotal,
		m.AudioBytesTotal,
		m.TurnsTotal,
		m.RepliesTotal,
		m.UpstreamErrorsTotal,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
