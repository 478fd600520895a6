package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Middleware wraps the /metrics handler itself with a request duration
// histogram, so scrapes are visible in the scraped data too.
type Middleware struct {
	histogram *prometheus.HistogramVec
}

func New(registry prometheus.Registerer, buckets []float64) *Middleware {
	if buckets == nil {
		buckets = prometheus.ExponentialBuckets(0.1, 1.5, 5)
	}

	histogram := promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "metrics_request_duration_seconds",
		Help:    "Tracks the latencies for metrics HTTP requests.",
		Buckets: buckets,
	}, []string{"method", "route", "status_code"})

	return &Middleware{
		histogram: histogram,
	}
}

func (m *Middleware) WrapHandler(route string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler.ServeHTTP(rw, r)
		m.histogram.With(prometheus.Labels{
			"method":      r.Method,
			"route":       route,
			"status_code": strconv.Itoa(rw.statusCode),
		}).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.statusCode = statusCode
}
