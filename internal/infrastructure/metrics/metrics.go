package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat backend metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// Stream outcome counters
	StreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "backend",
			Name:      "streams_total",
			Help:      "Total model generations by terminal status",
		},
		[]string{"model", "status"},
	)

	// Stream duration histogram
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat",
			Subsystem: "backend",
			Name:      "stream_duration_seconds",
			Help:      "Model generation duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	// Fragments per stream
	StreamFragments = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat",
			Subsystem: "backend",
			Name:      "stream_fragments",
			Help:      "Fragments emitted per generation",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000},
		},
		[]string{"model"},
	)

	// Active streams gauge
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chat",
			Subsystem: "backend",
			Name:      "active_streams",
			Help:      "Generations currently in flight",
		},
	)

	// Resume trigger counter
	ResumesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "backend",
			Name:      "resumes_total",
			Help:      "Auto-resume attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Persisted turns counter
	PersistedTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "backend",
			Name:      "persisted_turns_total",
			Help:      "Conversation turns written to storage",
		},
		[]string{"role"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordStream records a finished generation
func RecordStream(model, status string, durationSec float64, fragments int) {
	StreamsTotal.WithLabelValues(model, status).Inc()
	StreamDuration.WithLabelValues(model).Observe(durationSec)
	StreamFragments.WithLabelValues(model).Observe(float64(fragments))
}

// RecordResume records an auto-resume attempt
func RecordResume(outcome string) {
	ResumesTotal.WithLabelValues(outcome).Inc()
}

// RecordPersistedTurn records a stored conversation turn
func RecordPersistedTurn(role string) {
	PersistedTurnsTotal.WithLabelValues(role).Inc()
}
