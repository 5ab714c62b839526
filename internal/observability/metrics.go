// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name unless overridden.
const DefaultNamespace = "churn_horizon_lab"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Forecast metrics
	ForecastsComputed *prometheus.CounterVec
	ForecastDuration  *prometheus.HistogramVec
	SegmentsEvaluated prometheus.Counter
	SweepPoints       prometheus.Counter
	InputErrors       *prometheus.CounterVec

	// Run metrics
	RunsStored        *prometheus.CounterVec
	LastSuccessfulRun prometheus.Gauge

	// API metrics
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	StreamConnections prometheus.Gauge
	StreamMessages    *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses prometheus.DefaultRegisterer; an empty namespace uses DefaultNamespace.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ForecastsComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "computed_total",
			Help:      "Total number of forecasts computed by kind",
		}, []string{"kind"}),
		ForecastDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "duration_seconds",
			Help:      "Forecast computation time in seconds",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}, []string{"kind"}),
		SegmentsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "segments_evaluated_total",
			Help:      "Total number of segments evaluated",
		}),
		SweepPoints: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "sweep_points_total",
			Help:      "Total number of price points evaluated in sweeps",
		}),
		InputErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "input_errors_total",
			Help:      "Total number of rejected inputs by reason",
		}, []string{"reason"}),

		RunsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "stored_total",
			Help:      "Total number of forecast runs by outcome",
		}, []string{"status"}),
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "last_successful_timestamp",
			Help:      "Unix timestamp of last successfully stored run",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		StreamConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connections",
			Help:      "Number of open forecast stream connections",
		}),
		StreamMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Total number of stream messages answered by status",
		}, []string{"status"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a /metrics handler for a specific registry.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Forecast kinds used as the "kind" label.
const (
	KindHorizon = "horizon"
	KindSegment = "segment"
	KindSweep   = "sweep"
)

// RecordForecast records one forecast computation.
func (m *Metrics) RecordForecast(kind string, d time.Duration) {
	m.ForecastsComputed.WithLabelValues(kind).Inc()
	m.ForecastDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordSegments adds n evaluated segments.
func (m *Metrics) RecordSegments(n int) {
	m.SegmentsEvaluated.Add(float64(n))
}

// RecordSweepPoints adds n evaluated sweep points.
func (m *Metrics) RecordSweepPoints(n int) {
	m.SweepPoints.Add(float64(n))
}

// RecordInputError records a rejected request or file.
func (m *Metrics) RecordInputError(reason string) {
	m.InputErrors.WithLabelValues(reason).Inc()
}

// RecordRunStored records a run persistence outcome: "created", "existing" or "error".
func (m *Metrics) RecordRunStored(status string) {
	m.RunsStored.WithLabelValues(status).Inc()
	if status != "error" {
		m.LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(route string, code int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
