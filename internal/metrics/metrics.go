// Package metrics exposes Prometheus instrumentation for the tailing and
// resolution pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tailing
	BytesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenalog_bytes_read_total",
			Help: "Total bytes read from watched log files",
		},
		[]string{"stream"},
	)

	RecordsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenalog_records_extracted_total",
			Help: "Total complete records produced by the frame extractor",
		},
		[]string{"stream"},
	)

	Truncations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenalog_truncations_total",
			Help: "Number of times a watched file was truncated or replaced",
		},
		[]string{"stream"},
	)

	Rotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenalog_rotations_total",
			Help: "Number of switches to a newer log file",
		},
		[]string{"stream"},
	)

	ReadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenalog_read_errors_total",
			Help: "Transient read errors retried on the next poll",
		},
		[]string{"stream"},
	)

	CheckpointSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenalog_checkpoint_saves_total",
			Help: "Checkpoint save attempts by result",
		},
		[]string{"stream", "result"},
	)

	// Parsing
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenalog_events_emitted_total",
			Help: "Domain events produced by the parsers",
		},
		[]string{"type"},
	)

	// Resolution
	ResolveRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenalog_resolve_requests_total",
			Help: "Card lookup submissions by outcome (queued, cached, failed, duplicate, dropped)",
		},
		[]string{"outcome"},
	)

	ResolveLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arenalog_resolve_lookups_total",
			Help: "Card lookups handled by workers, by the tier that answered",
		},
		[]string{"source", "result"},
	)

	ResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arenalog_resolve_duration_seconds",
			Help:    "Time spent resolving one card lookup",
			Buckets: prometheus.DefBuckets,
		},
	)

	ResolveQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "arenalog_resolve_queue_depth",
			Help: "Requests waiting in the resolution queue",
		},
	)

	// Circuit breaker: 0=closed, 1=half-open, 2=open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arenalog_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordRead records n bytes read and the records extracted from them.
func RecordRead(stream string, n, records int) {
	BytesRead.WithLabelValues(stream).Add(float64(n))
	if records > 0 {
		RecordsExtracted.WithLabelValues(stream).Add(float64(records))
	}
}

// RecordCheckpoint records the result of a checkpoint save.
func RecordCheckpoint(stream string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	CheckpointSaves.WithLabelValues(stream, result).Inc()
}

// RecordLookup records a finished lookup answered by source.
func RecordLookup(source string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ResolveLookups.WithLabelValues(source, result).Inc()
	ResolveDuration.Observe(duration.Seconds())
}
