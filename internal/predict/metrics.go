package predict

import "github.com/prometheus/client_golang/prometheus"

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ckdserve",
			Subsystem: "predict",
			Name:      "predictions_total",
			Help:      "Successful predictions by source and label",
		},
		[]string{"source", "label"},
	)

	predictionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ckdserve",
			Subsystem: "predict",
			Name:      "errors_total",
			Help:      "Failed predictions by error kind",
		},
		[]string{"kind"},
	)

	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ckdserve",
			Subsystem: "predict",
			Name:      "cache_hits_total",
			Help:      "Predictions answered from the memo cache",
		},
	)
)

func init() {
	prometheus.MustRegister(predictionsTotal, predictionErrorsTotal, cacheHitsTotal)
}
