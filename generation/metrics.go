package generation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	chatcore "github.com/haowjy/meridian-chat-core"
)

// Metrics are the prometheus collectors a Runner updates.
type Metrics struct {
	generations *prometheus.CounterVec
	events      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	sources     *prometheus.HistogramVec
	warnings    *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		generations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "generations_total",
			Help:      "Generations run, by backend and outcome.",
		}, []string{"backend", "outcome"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "stream_events_total",
			Help:      "Stream events published, by event type.",
		}, []string{"type"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatcore",
			Name:      "generation_duration_seconds",
			Help:      "Wall time from job start to response.completed.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"backend"}),
		sources: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatcore",
			Name:      "extracted_sources",
			Help:      "Source files extracted from one response.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}, []string{"backend"}),
		warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "job_warnings_total",
			Help:      "Validation warnings raised for submitted jobs, by code.",
		}, []string{"code"}),
	}
}

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeCanceled  = "canceled"
)

func (m *Metrics) observeEvent(event chatcore.StreamEvent) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(event.Type)).Inc()
}

func (m *Metrics) observeWarnings(warnings []chatcore.ValidationWarning) {
	if m == nil {
		return
	}
	for _, w := range warnings {
		m.warnings.WithLabelValues(string(w.Code)).Inc()
	}
}

func (m *Metrics) observeDone(backend chatcore.BackendID, outcome string, started time.Time, sources int) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(backend.String(), outcome).Inc()
	if outcome != outcomeCompleted {
		return
	}
	m.duration.WithLabelValues(backend.String()).Observe(time.Since(started).Seconds())
	m.sources.WithLabelValues(backend.String()).Observe(float64(sources))
}
