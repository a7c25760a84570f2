package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Notification outcomes recorded per channel.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	dispatched    prometheus.Counter
	dropped       prometheus.Counter
	notifications *prometheus.CounterVec
	archived      prometheus.Counter
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_errors_total",
			Help: "Failed HTTP requests by route, method and error code.",
		}, []string{"route", "method", "code"}),
		dispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_events_dispatched_total",
			Help: "Domain events accepted by the dispatch queue.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_events_dropped_total",
			Help: "Domain events dropped because the dispatch queue was full.",
		}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_notifications_total",
			Help: "Notification deliveries by channel and outcome.",
		}, []string{"channel", "outcome"}),
		archived: factory.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_tickets_archived_total",
			Help: "Tickets archived by the retention job.",
		}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordDispatched counts an event accepted for async delivery.
func (m *Metrics) RecordDispatched() {
	if m == nil {
		return
	}
	m.dispatched.Inc()
}

// RecordDropped counts an event the dispatch queue had no room for.
func (m *Metrics) RecordDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// RecordNotification counts one delivery attempt.
func (m *Metrics) RecordNotification(channel, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, outcome).Inc()
}

// RecordArchived counts tickets archived in one run.
func (m *Metrics) RecordArchived(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.archived.Add(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
