// Package observability sets up structured logging and exposes the
// Prometheus metrics the rest of the engine records against.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reid",
		Name:      "frames_processed_total",
		Help:      "Total number of frames processed",
	}, []string{"camera_id"})

	DetectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reid",
		Name:      "detections_total",
		Help:      "Total number of person detections",
	}, []string{"camera_id"})

	ResolveCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reid",
		Name:      "resolve_calls_total",
		Help:      "Total number of GlobalIdentityEngine.Resolve calls, by matched stage",
	}, []string{"stage"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reid",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reid",
		Name:      "resolve_duration_seconds",
		Help:      "Duration of GlobalIdentityEngine.Resolve calls",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	GallerySize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reid",
		Name:      "gallery_size",
		Help:      "Number of persons currently active in the gallery",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reid",
		Name:      "queue_depth",
		Help:      "Number of pending frame tasks in queue",
	})

	SyncTickOutcome = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reid",
		Name:      "sync_tick_total",
		Help:      "Outcome of each PersistentStore sync tick",
	}, []string{"outcome"})

	CleanupEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reid",
		Name:      "cleanup_evictions_total",
		Help:      "Total number of persons marked inactive by the cleanup task",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reid",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reid",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
