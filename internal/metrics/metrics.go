// Package metrics holds the prometheus collectors of the frontend server.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fast_frontend",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fast_frontend",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fast_frontend",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	actionDispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fast_frontend",
			Subsystem: "actions",
			Name:      "dispatches_total",
			Help:      "Custom action requests by kind and final state.",
		},
		[]string{"entity", "kind", "state"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		actionDispatches,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry in the prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// Middleware records request counts and latencies. path is the metrics
// endpoint itself, which is not recorded.
func Middleware(path string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == path {
			return c.Next()
		}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if status < 400 {
				status = fiber.StatusInternalServerError
			}
		}
		method := strings.ToUpper(c.Method())
		route := canonicalRoute(c.Path())
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// RecordAction counts one custom action request.
func RecordAction(entity, kind, state string) {
	actionDispatches.WithLabelValues(entity, kind, state).Inc()
}

// canonicalRoute collapses row identifiers so label cardinality stays bounded.
func canonicalRoute(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] == "accounts" || parts[0] == "_frontend" {
		return "/" + trimmed
	}
	if len(parts) > 3 {
		parts = append(parts[:3], ":id")
	}
	return "/" + strings.Join(parts, "/")
}
