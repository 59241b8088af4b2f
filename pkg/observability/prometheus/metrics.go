package prometheus

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fluxorio/todoapi/pkg/web"
)

const namespace = "todoapi"

// Metrics holds all Prometheus metrics of one process. Each Metrics owns its
// registry, so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Database pool metrics
	DatabaseConnectionsOpen  prometheus.Gauge
	DatabaseConnectionsIdle  prometheus.Gauge
	DatabaseConnectionsInUse prometheus.Gauge
	DatabaseWaitCount        prometheus.Gauge
	DatabaseWaitDuration     prometheus.Gauge

	// Server metrics
	ServerInFlight         prometheus.Gauge
	ServerCapacity         prometheus.Gauge
	ServerUtilization      prometheus.Gauge
	ServerRejectedRequests prometheus.Gauge

	// Domain metrics
	TodoTransitions *prometheus.CounterVec
	AuthEvents      *prometheus.CounterVec
}

// NewMetrics creates a metrics collection on a fresh registry labelled with service
func NewMetrics(service string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"service": service}, registry))

	return &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request body size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 5), // 100B to 1MB
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response body size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 5),
			},
			[]string{"method", "route", "status"},
		),

		DatabaseConnectionsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_open",
			Help:      "Number of open database connections",
		}),
		DatabaseConnectionsIdle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_idle",
			Help:      "Number of idle database connections",
		}),
		DatabaseConnectionsInUse: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_in_use",
			Help:      "Number of database connections in use",
		}),
		DatabaseWaitCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_wait_count",
			Help:      "Total number of connections waited for",
		}),
		DatabaseWaitDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_wait_seconds",
			Help:      "Total time blocked waiting for a connection",
		}),

		ServerInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_in_flight_requests",
			Help:      "Requests currently being served",
		}),
		ServerCapacity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_in_flight_capacity",
			Help:      "Maximum requests in flight before 503",
		}),
		ServerUtilization: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_utilization_percent",
			Help:      "In-flight requests as a percentage of capacity",
		}),
		ServerRejectedRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "server_rejected_requests",
			Help:      "Total number of requests rejected with 503",
		}),

		TodoTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "todo_transitions_total",
				Help:      "ToDo lifecycle transitions",
			},
			[]string{"transition"},
		),
		AuthEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_events_total",
				Help:      "Registrations, logins and rejected credentials",
			},
			[]string{"event"},
		),
	}
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration, requestSize, responseSize int64) {
	code := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, route).Observe(float64(requestSize))
	m.HTTPResponseSize.WithLabelValues(method, route, code).Observe(float64(responseSize))
}

// UpdateDatabaseStats copies connection pool statistics
func (m *Metrics) UpdateDatabaseStats(stats sql.DBStats) {
	m.DatabaseConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DatabaseConnectionsIdle.Set(float64(stats.Idle))
	m.DatabaseConnectionsInUse.Set(float64(stats.InUse))
	m.DatabaseWaitCount.Set(float64(stats.WaitCount))
	m.DatabaseWaitDuration.Set(stats.WaitDuration.Seconds())
}

// UpdateServerMetrics copies the server's backpressure statistics
func (m *Metrics) UpdateServerMetrics(s web.ServerMetrics) {
	m.ServerInFlight.Set(float64(s.InFlight))
	m.ServerCapacity.Set(float64(s.Capacity))
	m.ServerUtilization.Set(s.Utilization)
	m.ServerRejectedRequests.Set(float64(s.RejectedRequests))
}

// RecordTodoTransition counts a ToDo lifecycle transition
func (m *Metrics) RecordTodoTransition(transition string) {
	m.TodoTransitions.WithLabelValues(transition).Inc()
}

// RecordAuthEvent counts an authentication outcome
func (m *Metrics) RecordAuthEvent(event string) {
	m.AuthEvents.WithLabelValues(event).Inc()
}
