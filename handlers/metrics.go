package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_order_transitions_total",
		Help: "Confirmed order status transitions, by target status",
	}, []string{"to"})

	chatMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panel_chat_messages_sent_total",
		Help: "Chat messages confirmed by the backend",
	})

	chatPushesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "panel_chat_pushes_received_total",
		Help: "Messages delivered over the real-time channel",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "panel_request_duration_seconds",
		Help:    "Time spent handling panel API requests",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordTransition counts a confirmed order transition.
func RecordTransition(to string) {
	orderTransitions.WithLabelValues(to).Inc()
}

// RecordMessageSent counts a confirmed chat send.
func RecordMessageSent() {
	chatMessagesSent.Inc()
}

// RecordPush counts a real-time push delivery.
func RecordPush() {
	chatPushesReceived.Inc()
}

// MetricsMiddleware observes per-request handling time.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		requestDuration.Observe(time.Since(start).Seconds())
		return err
	}
}
