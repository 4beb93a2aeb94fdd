package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SamplesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceid",
		Name:      "samples_created_total",
		Help:      "Total number of samples created",
	}, []string{"workspace_id"})

	SamplesDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceid",
		Name:      "samples_deleted_total",
		Help:      "Total number of samples deleted",
	}, []string{"workspace_id"})

	BlobsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "faceid",
		Name:      "blobs_deleted_total",
		Help:      "Total number of blob deletions issued by cascade walks",
	})

	EnrollmentRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceid",
		Name:      "enrollment_rejected_total",
		Help:      "Total number of enrollments rejected by the quality gate",
	}, []string{"workspace_id"})

	IndexCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceid",
		Name:      "index_calls_total",
		Help:      "Total number of calls to the identity index service",
	}, []string{"action"})

	EngineRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faceid",
		Name:      "engine_request_duration_seconds",
		Help:      "Duration of processing engine round trips",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"operation"})

	RetentionDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "faceid",
		Name:      "retention_deleted_total",
		Help:      "Total number of rows removed by the retention sweep",
	}, []string{"entity"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "faceid",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "faceid",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
