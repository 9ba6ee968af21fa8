package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exposed on /metrics.
// Every instance owns its registry so tests can build several side by side.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpErrors   *prometheus.CounterVec
	httpInFlight prometheus.Gauge

	ticketsCreated *prometheus.CounterVec
	statusChanges  *prometheus.CounterVec
	assignments    prometheus.Counter
	comments       prometheus.Counter
	activities     *prometheus.CounterVec
	slaBreaches    *prometheus.CounterVec
	txRetries      prometheus.Counter
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP requests that ended with a domain error code",
		}, []string{"method", "route", "code"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		}),
		ticketsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_tickets_created_total",
			Help: "Tickets created, by priority",
		}, []string{"priority"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_ticket_status_changes_total",
			Help: "Ticket status transitions, by target status",
		}, []string{"status"}),
		assignments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_ticket_assignments_total",
			Help: "Ticket reassignments",
		}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_ticket_comments_total",
			Help: "Comments added to tickets",
		}),
		activities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_activities_recorded_total",
			Help: "Audit activities recorded, by action",
		}, []string{"action"}),
		slaBreaches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_sla_breaches_total",
			Help: "Tickets detected past their SLA deadline, by priority",
		}, []string{"priority"}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_ticket_number_retries_total",
			Help: "Ticket creations retried after a ticket number collision",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.httpErrors, m.httpInFlight,
		m.ticketsCreated, m.statusChanges, m.assignments, m.comments,
		m.activities, m.slaBreaches, m.txRetries,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RequestStarted tracks an in-flight request and returns the function that ends it.
func (m *Metrics) RequestStarted() func() {
	if m == nil {
		return func() {}
	}
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "route": route, "status": strconv.Itoa(status)}
	m.httpRequests.With(labels).Inc()
	m.httpDuration.With(labels).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, route, code).Inc()
}

func (m *Metrics) TicketCreated(priority string) {
	if m == nil {
		return
	}
	m.ticketsCreated.WithLabelValues(priority).Inc()
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) TicketAssigned() {
	if m == nil {
		return
	}
	m.assignments.Inc()
}

func (m *Metrics) CommentAdded() {
	if m == nil {
		return
	}
	m.comments.Inc()
}

func (m *Metrics) ActivityRecorded(action string) {
	if m == nil {
		return
	}
	m.activities.WithLabelValues(action).Inc()
}

func (m *Metrics) SLABreached(priority string) {
	if m == nil {
		return
	}
	m.slaBreaches.WithLabelValues(priority).Inc()
}

func (m *Metrics) TicketNumberRetried() {
	if m == nil {
		return
	}
	m.txRetries.Inc()
}
