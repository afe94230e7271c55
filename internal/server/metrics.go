package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/KaramelBytes/automateda/internal/dataset"
)

type metrics struct {
	scoreRequests  *prometheus.CounterVec
	scoreDuration  prometheus.Histogram
	datasetsLoaded *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer, store *dataset.Store) *metrics {
	m := &metrics{
		scoreRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "automateda_score_requests_total",
			Help: "Feature ranking requests by target type and outcome",
		}, []string{"target_type", "status"}),
		scoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "automateda_score_duration_seconds",
			Help:    "Time spent ranking features",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		datasetsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "automateda_datasets_loaded_total",
			Help: "Datasets ingested into the session store by source",
		}, []string{"source"}),
	}
	cached := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "automateda_datasets_cached",
		Help: "Datasets currently held in the session store",
	}, func() float64 { return float64(store.Len()) })

	if registerer != nil {
		registerer.MustRegister(m.scoreRequests, m.scoreDuration, m.datasetsLoaded, cached)
	}
	return m
}
