package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality (no per-room or per-player labels).
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fightcore_tick_duration_seconds",
		Help:    "Time spent executing one sim.Step call",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	roomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fightcore_rooms_active",
		Help: "Current number of live rooms (waiting or in-progress)",
	})

	transcriptTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fightcore_transcript_ticks_total",
		Help: "Total ticks recorded to round transcripts",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fightcore_connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // bounded: "rate_limit", "origin", "ws_ip_limit", "ws_total_limit"

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fightcore_websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fightcore_websocket_messages_total",
		Help: "Total inbound WebSocket messages accepted (post rate-limit)",
	})

	wsMessagesThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fightcore_websocket_messages_throttled_total",
		Help: "Inbound WebSocket messages dropped by the per-socket budget",
	})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fightcore_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})
)

// RecordTick records one sim.Step's wall-clock duration.
func RecordTick(d time.Duration) { tickDuration.Observe(d.Seconds()) }

// UpdateRoomsActive sets the live-room gauge.
func UpdateRoomsActive(n int) { roomsActive.Set(float64(n)) }

// IncrementTranscriptTicks adds n recorded ticks to the running total.
func IncrementTranscriptTicks(n int) { transcriptTicksTotal.Add(float64(n)) }

// RecordConnectionRejected increments the rejection counter for reason.
func RecordConnectionRejected(reason string) { connectionRejected.WithLabelValues(reason).Inc() }

// UpdateWSConnections sets the active WebSocket connection gauge.
func UpdateWSConnections(n int) { wsConnectionsActive.Set(float64(n)) }

// IncrementWSMessages increments the accepted inbound message counter.
func IncrementWSMessages() { wsMessagesTotal.Inc() }

// IncrementWSThrottled increments the per-socket throttled message counter.
func IncrementWSThrottled() { wsMessagesThrottled.Inc() }

// RecordRequest records one HTTP request's latency.
func RecordRequest(method, endpoint string, d time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// metricsMiddleware times every request by route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		RecordRequest(r.Method, endpoint, time.Since(start))
	})
}
