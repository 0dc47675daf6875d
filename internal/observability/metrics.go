package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "klarity",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "klarity",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	visionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "klarity",
			Subsystem: "vision",
			Name:      "requests_total",
			Help:      "Quote image analyses sent to the vision model.",
		},
		[]string{"node", "provider", "success"},
	)
	visionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "klarity",
			Subsystem: "vision",
			Name:      "request_duration_seconds",
			Help:      "Vision model analysis duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"node", "provider", "success"},
	)
	linkOpens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "klarity",
			Subsystem: "magic_link",
			Name:      "opens_total",
			Help:      "Magic link opens by outcome.",
		},
		[]string{"node", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, visionRequests, visionDuration, linkOpens)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordVision(node, provider string, duration time.Duration, success bool) {
	RegisterMetrics()
	successLabel := strconv.FormatBool(success)
	visionRequests.WithLabelValues(node, provider, successLabel).Inc()
	visionDuration.WithLabelValues(node, provider, successLabel).Observe(duration.Seconds())
}

// RecordLinkOpen counts one magic link open by outcome (opened, expired, not_found, simulated).
func RecordLinkOpen(node, outcome string) {
	RegisterMetrics()
	linkOpens.WithLabelValues(node, outcome).Inc()
}
