package dataaccess

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps the prometheus collectors updated by the pipeline.
type Metrics struct {
	lookups     *prometheus.CounterVec
	executions  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	storeErrors prometheus.Counter
}

// Execution outcomes.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "querycache",
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by result",
			},
			[]string{"result"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "querycache",
				Name:      "executions_total",
				Help:      "Raw query executions by data access and outcome",
			},
			[]string{"data_access", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "querycache",
				Name:      "execution_duration_seconds",
				Help:      "Raw query execution time",
				Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
			},
			[]string{"data_access"},
		),
		storeErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "querycache",
				Name:      "cache_store_errors_total",
				Help:      "Failed cache stores and flushes",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.lookups, m.executions, m.duration, m.storeErrors)
	}
	return m
}

func (m *Metrics) lookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) execution(dataAccessID string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	m.executions.WithLabelValues(dataAccessID, outcome).Inc()
	m.duration.WithLabelValues(dataAccessID).Observe(elapsed.Seconds())
}

func (m *Metrics) storeError() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}

// Lookups returns the lookup counter for result: "hit", "miss" or "error".
func (m *Metrics) Lookups(result string) prometheus.Counter {
	return m.lookups.WithLabelValues(result)
}
