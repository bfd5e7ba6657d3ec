package syncer

import "github.com/prometheus/client_golang/prometheus"

var (
	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtrack_sync_runs_total",
			Help: "Total sync passes by outcome",
		},
		[]string{"status"},
	)
	syncEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "airtrack_sync_events_total",
			Help: "Play events processed, by attribution outcome",
		},
		[]string{"outcome"},
	)
	syncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "airtrack_sync_duration_seconds",
			Help:    "Wall time of one sync pass",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(syncRuns, syncEvents, syncDuration)
}
