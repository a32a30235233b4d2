// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the API's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "testero",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "testero",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	sessionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "testero",
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "Sessions created, by kind.",
		},
		[]string{"kind"},
	)

	answersRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "testero",
			Subsystem: "sessions",
			Name:      "answers_total",
			Help:      "Answers recorded, by kind and correctness.",
		},
		[]string{"kind", "correct"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "testero",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
		[]string{"route"},
	)

	blocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "testero",
			Subsystem: "billing",
			Name:      "blocked_total",
			Help:      "Requests stopped by a billing gate, by code.",
		},
		[]string{"code"},
	)
)

// Session kinds
const (
	KindDiagnostic = "diagnostic"
	KindPractice   = "practice"
	KindQuestion   = "question"
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		sessionsCreated,
		answersRecorded,
		rateLimited,
		blocked,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// MetricsHandler exposes the registry in the Prometheus text format
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// WithMetrics records request counts and latency, labelled by the route
// pattern the mux matched
func WithMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next(rec, r)

		route := routeLabel(r.Pattern)
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	}
}

func RecordSessionCreated(kind string) {
	sessionsCreated.WithLabelValues(kind).Inc()
}

func RecordAnswer(kind string, correct bool) {
	answersRecorded.WithLabelValues(kind, strconv.FormatBool(correct)).Inc()
}

func RecordRateLimited(pattern string) {
	rateLimited.WithLabelValues(routeLabel(pattern)).Inc()
}

func RecordBlocked(code string) {
	if code == "" {
		return
	}
	blocked.WithLabelValues(code).Inc()
}

func routeLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
