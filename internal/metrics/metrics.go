// Package metrics exposes the server's Prometheus collectors. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	connectionsActive  prometheus.Gauge
	eventsEmitted      *prometheus.CounterVec
	deliveriesDropped  *prometheus.CounterVec
	channelOps         *prometheus.CounterVec
	channelOpDuration  *prometheus.HistogramVec
	inboundRateLimited prometheus.Counter
}

func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arena_ws_connections_active",
			Help: "Number of open WebSocket connections",
		}),

		eventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_events_emitted_total",
			Help: "Events handed to the hub, by event type",
		}, []string{"type"}),

		deliveriesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_event_deliveries_dropped_total",
			Help: "Event deliveries that never reached a connection, by reason",
		}, []string{"reason"}),

		channelOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_channel_operations_total",
			Help: "Channel service operations, by operation and outcome",
		}, []string{"op", "outcome"}),

		channelOpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arena_channel_operation_duration_seconds",
			Help:    "Time spent inside channel service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"op"}),

		inboundRateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_ws_inbound_rate_limited_total",
			Help: "Inbound WebSocket frames rejected by the per-connection limiter",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connectionsActive.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) EventEmitted(eventType string) {
	if m == nil {
		return
	}
	m.eventsEmitted.WithLabelValues(eventType).Inc()
}

func (m *Metrics) DeliveryDropped(reason string) {
	if m == nil {
		return
	}
	m.deliveriesDropped.WithLabelValues(reason).Inc()
}

// ObserveOp records one finished channel operation.
func (m *Metrics) ObserveOp(op string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.channelOps.WithLabelValues(op, outcome).Inc()
	m.channelOpDuration.WithLabelValues(op).Observe(seconds)
}

func (m *Metrics) InboundRateLimited() {
	if m == nil {
		return
	}
	m.inboundRateLimited.Inc()
}
