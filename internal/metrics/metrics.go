package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WsConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meno_ws_connections",
		Help: "Current number of registered websocket connections",
	}, []string{"kind"})
	WsBroadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meno_ws_broadcasts_total",
		Help: "Total number of payloads sent to a channel key",
	}, []string{"kind"})
	WsEvictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meno_ws_evictions_total",
		Help: "Connections removed after a failed delivery",
	}, []string{"kind"})
	WsDroppedFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meno_ws_dropped_frames_total",
		Help: "Inbound chat frames dropped as malformed",
	})
	ChatMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meno_chat_messages_total",
		Help: "Total number of persisted chat messages",
	})
	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meno_notifications_total",
		Help: "Notifications dispatched, by type",
	}, []string{"type"})
	StoriesSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meno_stories_swept_total",
		Help: "Expired stories deleted by the sweeper",
	})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WsConnections, WsBroadcastsTotal, WsEvictionsTotal, WsDroppedFramesTotal,
		ChatMessagesTotal, NotificationsTotal, StoriesSweptTotal,
		HttpRequestsTotal, HttpRequestDuration,
	)
}

// GinMiddleware records request count and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
