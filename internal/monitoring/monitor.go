package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor owns the service's prometheus registry and a few status values
// reported by the health endpoint. A nil *Monitor records nothing.
type Monitor struct {
	registry *prometheus.Registry

	orderTransitions *prometheus.CounterVec
	lotLookups       *prometheus.CounterVec
	authEvents       *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec

	status      map[string]interface{}
	statusMutex sync.RWMutex
	startTime   time.Time
}

// NewMonitor creates a monitor with its collectors registered
func NewMonitor() *Monitor {
	registry := prometheus.NewRegistry()

	m := &Monitor{
		registry: registry,
		orderTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "farmlink_order_transitions_total",
				Help: "Order status transitions by action and result",
			},
			[]string{"action", "result"},
		),
		lotLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "farmlink_lot_lookups_total",
				Help: "Traceability lookups by result",
			},
			[]string{"result"},
		),
		authEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "farmlink_auth_events_total",
				Help: "Auth state change events published",
			},
			[]string{"type"},
		),
		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "farmlink_upstream_request_seconds",
				Help:    "Latency of weather, geocoding and LLM calls",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"service", "outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "farmlink_http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		status:    make(map[string]interface{}),
		startTime: time.Now(),
	}

	registry.MustRegister(
		m.orderTransitions,
		m.lotLookups,
		m.authEvents,
		m.upstreamLatency,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTransition counts an order transition attempt
func (m *Monitor) RecordTransition(action string, err error) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(action, outcome(err)).Inc()
}

// RecordLotLookup counts a traceability lookup
func (m *Monitor) RecordLotLookup(found bool) {
	if m == nil {
		return
	}
	result := "found"
	if !found {
		result = "not_found"
	}
	m.lotLookups.WithLabelValues(result).Inc()
}

// RecordAuthEvent counts a published auth event
func (m *Monitor) RecordAuthEvent(eventType string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(eventType).Inc()
}

// ObserveUpstream records the latency of a collaborator call started at start
func (m *Monitor) ObserveUpstream(service string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.upstreamLatency.WithLabelValues(service, outcome(err)).Observe(time.Since(start).Seconds())
}

// RecordRequest counts a served HTTP request
func (m *Monitor) RecordRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// SetStatus records a value reported by Status
func (m *Monitor) SetStatus(name string, value interface{}) {
	if m == nil {
		return
	}
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()
	m.status[name] = value
}

// Status returns a copy of the status values plus uptime
func (m *Monitor) Status() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	m.statusMutex.RLock()
	defer m.statusMutex.RUnlock()

	status := make(map[string]interface{}, len(m.status)+1)
	for k, v := range m.status {
		status[k] = v
	}
	status["uptime_seconds"] = time.Since(m.startTime).Seconds()
	return status
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
