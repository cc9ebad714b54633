package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks executor attempts per operation and outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourdesk_operation_attempts_total",
			Help: "Total number of remote operation attempts",
		},
		[]string{"operation", "outcome"},
	)

	// OperationDuration tracks the wall time of a whole retry sequence
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tourdesk_operation_duration_seconds",
			Help:    "Remote operation duration in seconds, including retries and backoff",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"operation", "result"},
	)

	// SessionInvalidations counts sessions dropped after auth failures
	SessionInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tourdesk_session_invalidations_total",
			Help: "Total number of local sessions invalidated after an auth failure",
		},
	)

	// UploadsTotal tracks asset uploads per kind and result
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourdesk_uploads_total",
			Help: "Total number of asset uploads",
		},
		[]string{"kind", "result"},
	)

	// UploadBytes tracks the size of accepted uploads
	UploadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tourdesk_upload_bytes",
			Help:    "Size of uploaded assets in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
		},
		[]string{"kind"},
	)

	// CascadeStepsTotal tracks cascading delete steps per step and result
	CascadeStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourdesk_cascade_steps_total",
			Help: "Total number of cascading delete steps",
		},
		[]string{"step", "result"},
	)

	// OrphanedObjectsTotal tracks orphaned objects per event (recorded, removed, failed)
	OrphanedObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourdesk_orphaned_objects_total",
			Help: "Total number of orphaned object events",
		},
		[]string{"event"},
	)

	// DBConnectionPoolUsage tracks the percentage of acquired pool connections
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tourdesk_db_connection_pool_usage_percent",
			Help: "Percentage of database pool connections in use",
		},
	)
)
