package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsTotal counts ledger operations by method and result.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lendledger",
		Name:      "operations_total",
		Help:      "Ledger operations processed, labelled by method and result.",
	}, []string{"method", "result"})

	// OperationSeconds observes operation latency by method.
	OperationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lendledger",
		Name:      "operation_duration_seconds",
		Help:      "Latency of ledger operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	// EventsEmitted counts ledger events by type.
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lendledger",
		Name:      "events_emitted_total",
		Help:      "Ledger events emitted, labelled by event type.",
	}, []string{"type"})

	// WebsocketClients gauges connected event-stream subscribers.
	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lendledger",
		Name:      "websocket_clients",
		Help:      "Connected websocket event subscribers.",
	})
)

// Handler exposes the default registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
