// Package metrics exposes Prometheus collectors for the IoT admin core.
//
// Collectors live on a private registry so tests can create as many
// Metrics as they like. Every method is safe on a nil *Metrics, which is
// what callers hold when metrics are disabled.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace prefixes every metric name.
const namespace = "iotadmin"

// Metrics holds the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	smartNameUpdates   *prometheus.CounterVec
	appMessages        *prometheus.CounterVec
	messageboxRequests *prometheus.CounterVec
	subscriptionIDs    *prometheus.CounterVec
	websocketClients   prometheus.Gauge
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		smartNameUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "smartname_updates_total",
			Help:      "Smart-name edits by operation and result.",
		}, []string{"op", "result"}),
		appMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "app_messages_total",
			Help:      "visuApp messages by kind.",
		}, []string{"kind"}),
		messageboxRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messagebox_requests_total",
			Help:      "Adapter commands by command and result.",
		}, []string{"command", "result"}),
		subscriptionIDs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_batch_ids_total",
			Help:      "State ids sent in batched subscribe and unsubscribe calls.",
		}, []string{"op"}),
		websocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SmartNameUpdate counts one smart-name edit.
func (m *Metrics) SmartNameUpdate(op, result string) {
	if m == nil {
		return
	}
	m.smartNameUpdates.WithLabelValues(op, result).Inc()
}

// AppMessage counts one visuApp message.
func (m *Metrics) AppMessage(kind string) {
	if m == nil {
		return
	}
	m.appMessages.WithLabelValues(kind).Inc()
}

// MessageboxRequest counts one adapter command.
func (m *Metrics) MessageboxRequest(command, result string) {
	if m == nil {
		return
	}
	m.messageboxRequests.WithLabelValues(command, result).Inc()
}

// SubscriptionBatch records n ids sent in one batched call.
func (m *Metrics) SubscriptionBatch(op string, n int) {
	if m == nil {
		return
	}
	m.subscriptionIDs.WithLabelValues(op).Add(float64(n))
}

// WebSocketConnected adjusts the client gauge by +1 or -1.
func (m *Metrics) WebSocketConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.websocketClients.Inc()
		return
	}
	m.websocketClients.Dec()
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(took.Seconds())
}
