package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reviewlink"

// Delivery outcomes used as the "outcome" label.
const (
	OutcomeSuccess     = "success"
	OutcomeValidation  = "validation"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics groups the collectors exported on /metrics.
type Metrics struct {
	deliveries         *prometheus.CounterVec
	deliveryDuration   *prometheus.HistogramVec
	discoveryFailures  *prometheus.CounterVec
	connections        prometheus.Gauge
	eventsPublished    *prometheus.CounterVec
	connectionsDropped prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid global collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Comment batch deliveries by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		deliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delivery_duration_seconds",
				Help:      "Duration of comment batch deliveries",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"transport"},
		),
		discoveryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "discovery_failures_total",
				Help:      "Failed target discoveries by transport",
			},
			[]string{"transport"},
		),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Open live update connections",
		}),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "live_events_total",
				Help:      "Events written to live update connections by type",
			},
			[]string{"type"},
		),
		connectionsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_connections_dropped_total",
			Help:      "Connections removed after a failed write",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.deliveries,
			m.deliveryDuration,
			m.discoveryFailures,
			m.connections,
			m.eventsPublished,
			m.connectionsDropped,
		)
	}
	return m
}

// ObserveDelivery records one SendComments call.
func (m *Metrics) ObserveDelivery(transport, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(transport, outcome).Inc()
	m.deliveryDuration.WithLabelValues(transport).Observe(took.Seconds())
}

// DiscoveryFailed records a failed ListTargets.
func (m *Metrics) DiscoveryFailed(transport string) {
	if m == nil {
		return
	}
	m.discoveryFailures.WithLabelValues(transport).Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// EventsWritten records n successful writes of an event type.
func (m *Metrics) EventsWritten(eventType string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Add(float64(n))
}

func (m *Metrics) ConnectionDropped() {
	if m == nil {
		return
	}
	m.connectionsDropped.Inc()
}
