package navigation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	tileQueueSize    prometheus.Gauge
	tileRunning      prometheus.Gauge
	tileThroughput   prometheus.Gauge
	tileCacheHitRate prometheus.Gauge
	tileResults      *prometheus.CounterVec
	islandRebuilds   prometheus.Counter
	offMeshLinks     prometheus.Gauge
}

// NewMetrics registers the tile scheduler metrics on reg. A nil reg uses a
// private registry so several systems can live in one process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		tileQueueSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "navsystem_tile_queue_size",
			Help: "Tile tasks waiting to be spawned",
		}),
		tileRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "navsystem_tile_running_tasks",
			Help: "Tile generation jobs in flight",
		}),
		tileThroughput: f.NewGauge(prometheus.GaugeOpts{
			Name: "navsystem_tile_throughput",
			Help: "Tiles committed per second during the last tick",
		}),
		tileCacheHitRate: f.NewGauge(prometheus.GaugeOpts{
			Name: "navsystem_tile_cache_hit_rate",
			Help: "Tiles found unchanged per second during the last tick",
		}),
		tileResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "navsystem_tile_results_total",
			Help: "Harvested tile tasks by outcome",
		}, []string{"outcome"}),
		islandRebuilds: f.NewCounter(prometheus.CounterOpts{
			Name: "navsystem_island_rebuilds_total",
			Help: "Full island graph rebuilds",
		}),
		offMeshLinks: f.NewGauge(prometheus.GaugeOpts{
			Name: "navsystem_offmesh_links",
			Help: "Registered off-mesh links",
		}),
	}
}
