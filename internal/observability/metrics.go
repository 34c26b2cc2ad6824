package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSubscriptions is the gauge of live store subscriptions held by
	// the registry.
	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agora_active_subscriptions",
		Help: "Number of active store query subscriptions",
	})

	// SnapshotsDelivered counts full result-set snapshots pushed to
	// subscribers, by collection kind.
	SnapshotsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_snapshots_delivered_total",
		Help: "Total query snapshots delivered, by collection kind",
	}, []string{"kind"})

	// StoreWriteLatency records document store write latency by operation.
	StoreWriteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agora_store_write_latency_seconds",
		Help:    "Document store write latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// FanoutWrites counts per-participant conversation fan-out writes by outcome.
	FanoutWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_fanout_writes_total",
		Help: "Total conversation fan-out writes by outcome",
	}, []string{"outcome"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// WebSocketConnectionsTotal is the gauge of active live-view sockets.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agora_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})
)

// ObserveWrite records the latency of a store write operation.
func ObserveWrite(operation string, start time.Time) {
	StoreWriteLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// TrackWrite returns a function that records write latency when called (e.g. defer).
func TrackWrite(operation string) func() {
	start := time.Now()
	return func() {
		ObserveWrite(operation, start)
	}
}
