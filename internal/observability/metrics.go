package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Eviction reasons.
const (
	EvictClosed     = "closed"
	EvictInactivity = "inactivity"
	EvictShutdown   = "shutdown"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framewire",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "framewire",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Sessions currently tracked by the server.",
		},
	)
	sessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Sessions created, at most one per peer.",
		},
	)
	sessionsEvicted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "sessions",
			Name:      "evicted_total",
			Help:      "Sessions removed from the table by reason.",
		},
		[]string{"reason"},
	)
	packetsDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "packets",
			Name:      "decoded_total",
			Help:      "Packets decoded from session streams.",
		},
		[]string{"node"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "packets",
			Name:      "decode_errors_total",
			Help:      "Decode or checksum failures that ended a session.",
		},
		[]string{"node"},
	)
	packetBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framewire",
			Subsystem: "packets",
			Name:      "size_bytes",
			Help:      "Full packet size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		},
		[]string{"node"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			sessionsActive, sessionsCreated, sessionsEvicted,
			packetsDecoded, decodeErrors, packetBytes,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordSessionCreated(active int) {
	RegisterMetrics()
	sessionsCreated.Inc()
	sessionsActive.Set(float64(active))
}

func RecordSessionsEvicted(reason string, n, active int) {
	RegisterMetrics()
	if n > 0 {
		sessionsEvicted.WithLabelValues(reason).Add(float64(n))
	}
	sessionsActive.Set(float64(active))
}

func RecordPacketDecoded(node string, size int) {
	RegisterMetrics()
	packetsDecoded.WithLabelValues(node).Inc()
	packetBytes.WithLabelValues(node).Observe(float64(size))
}

func RecordDecodeError(node string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(node).Inc()
}
