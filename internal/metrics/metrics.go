package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	TicksProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_ticks_total",
			Help: "Total number of scheduler ticks processed.",
		},
	)
	EventsBroadcast = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_broadcast_total",
			Help: "Total number of events fanned out, by event type.",
		},
		[]string{"type"},
	)
	ActiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_subscribers_active",
			Help: "Number of currently connected stream subscribers.",
		},
	)
	DroppedSubscribers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_subscribers_dropped_total",
			Help: "Subscribers removed after a failed delivery.",
		},
	)
	StoreWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_write_failures_total",
			Help: "Failed storage writes, by record kind.",
		},
		[]string{"kind"},
	)
)

func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		RequestCount,
		RequestDuration,
		TicksProcessed,
		EventsBroadcast,
		ActiveSubscribers,
		DroppedSubscribers,
		StoreWriteFailures,
	)
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latencies per route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		RequestCount.WithLabelValues(c.Request.Method, path, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
