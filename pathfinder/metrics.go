package pathfinder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	accepted       prometheus.Counter
	results        *prometheus.CounterVec
	restarts       prometheus.Counter
	queued         prometheus.Gauge
	activeContexts prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		accepted: f.NewCounter(prometheus.CounterOpts{
			Name: "navsystem_path_requests_accepted_total",
			Help: "Path requests accepted into the queue",
		}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Name: "navsystem_path_results_total",
			Help: "Path callbacks fired by status",
		}, []string{"status"}),
		restarts: f.NewCounter(prometheus.CounterOpts{
			Name: "navsystem_path_restarts_total",
			Help: "Searches restarted after a mesh change",
		}),
		queued: f.NewGauge(prometheus.GaugeOpts{
			Name: "navsystem_path_queue_size",
			Help: "Path requests waiting for a processing context",
		}),
		activeContexts: f.NewGauge(prometheus.GaugeOpts{
			Name: "navsystem_path_active_contexts",
			Help: "Processing contexts in use",
		}),
	}
}
