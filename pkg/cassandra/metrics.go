package cassandra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	serversKnown    prometheus.Gauge
	openConnections prometheus.Gauge
	evictionsTotal  prometheus.Counter
}

func newMetrics(r prometheus.Registerer) *metrics {
	return &metrics{
		requestDuration: promauto.With(r).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cassandra",
			Name:      "request_duration_seconds",
			Help:      "Time spent on individual remote call attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status_code"}),
		retriesTotal: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Namespace: "cassandra",
			Name:      "call_retries_total",
			Help:      "Failed call attempts that were retried.",
		}, []string{"operation"}),
		serversKnown: promauto.With(r).NewGauge(prometheus.GaugeOpts{
			Namespace: "cassandra",
			Name:      "pool_servers",
			Help:      "The number of servers registered with the pool.",
		}),
		openConnections: promauto.With(r).NewGauge(prometheus.GaugeOpts{
			Namespace: "cassandra",
			Name:      "pool_open_connections",
			Help:      "Connections currently tracked by the pool.",
		}),
		evictionsTotal: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Namespace: "cassandra",
			Name:      "pool_evictions_total",
			Help:      "Dead connections evicted from the pool.",
		}),
	}
}
