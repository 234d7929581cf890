// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Assistant outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeUpstream = "upstream_error"
	OutcomeTimeout  = "timeout"
)

// Collector holds the service's Prometheus metrics.
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	assistantCalls   *prometheus.CounterVec
	assistantLatency prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskpick_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskpick_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		assistantCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskpick_assistant_calls_total",
			Help: "Assistant picks by outcome",
		}, []string{"outcome"}),
		assistantLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskpick_assistant_latency_seconds",
			Help:    "Latency of the reasoning service in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.assistantCalls,
		c.assistantLatency,
	)

	return c
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAssistant records the outcome and latency of an assistant pick.
func (c *Collector) RecordAssistant(outcome string, duration time.Duration) {
	c.assistantCalls.WithLabelValues(outcome).Inc()
	if duration > 0 {
		c.assistantLatency.Observe(duration.Seconds())
	}
}

// Middleware records every request handled by the engine. Unmatched routes
// are grouped under one label to keep cardinality bounded.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		c.RecordHTTPRequest(ctx.Request.Method, route, ctx.Writer.Status(), time.Since(start))
	}
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
