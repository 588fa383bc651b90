package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	RoomEvents        *prometheus.CounterVec
	WSMessages        *prometheus.CounterVec
	SignalsRelayed    *prometheus.CounterVec
	ReplyCycles       *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
	ReplyLatency      prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of live realtime connections across all rooms.",
		}),
		RoomEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_events_total",
			Help:      "Room membership events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		SignalsRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_relayed_total",
			Help:      "Negotiation envelopes by kind and delivery outcome.",
		}, []string{"kind", "outcome"}),
		ReplyCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_cycles_total",
			Help:      "Reply cycles by outcome.",
		}, []string{"outcome"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "External capability errors by provider and code.",
		}, []string{"provider", "code"}),
		ReplyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_latency_ms",
			Help:      "End-to-end reply cycle latency in milliseconds.",
			Buckets:   []float64{200, 500, 1000, 2000, 4000, 8000, 15000},
		}),
	}
}

func (m *Metrics) ObserveReplyLatency(d time.Duration) {
	m.ReplyLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
