package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kogma_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kogma_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	orderWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kogma_order_writes_total",
		Help: "Order create and patch attempts by result",
	}, []string{"op", "result"})

	eventFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kogma_event_notify_failures_total",
		Help: "Order events that could not be delivered",
	})
)

func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveOrderWrite counts an order create or patch; result is "ok" or an
// error kind.
func ObserveOrderWrite(op, result string) {
	orderWrites.WithLabelValues(op, result).Inc()
}

func ObserveEventFailure() {
	eventFailures.Inc()
}
