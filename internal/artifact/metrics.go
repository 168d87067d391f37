package artifact

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ckdserve",
			Subsystem: "artifact",
			Name:      "loads_total",
			Help:      "Artifact decode attempts by result",
		},
		[]string{"result"},
	)

	loadedModTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ckdserve",
			Subsystem: "artifact",
			Name:      "loaded_mtime_seconds",
			Help:      "Modification time of the published artifact (unix seconds)",
		},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ckdserve",
			Subsystem: "artifact",
			Name:      "load_duration_seconds",
			Help:      "Time spent decoding the artifact file",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadedModTime, loadDuration)
}
