package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safepay_http_requests_total",
			Help: "Total HTTP requests processed, by path, method, and status.",
		},
		[]string{"path", "method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safepay_http_request_duration_seconds",
			Help:    "HTTP request latency distribution, by path and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := routePattern(r.URL.Path)
		requestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}

// routePattern collapses path parameters into their route template so metric
// label cardinality stays bounded.
func routePattern(path string) string {
	if strings.HasPrefix(path, "/api/reports/") && len(path) > len("/api/reports/") {
		return "/api/reports/{id}/status"
	}
	return path
}
