package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/org/bookforge/internal/engine"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookforge_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookforge_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	booksTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bookforge_books_total",
		Help: "Number of stored books.",
	})

	generationAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookforge_generation_attempts_total",
		Help: "Provider generation attempts by operation, model and outcome.",
	}, []string{"operation", "model", "outcome"})

	generationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookforge_generation_attempt_duration_seconds",
		Help:    "Provider attempt duration in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"operation", "model"})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, booksTotal, generationAttempts, generationDuration)
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsMiddleware records request metrics.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rr, r)

		dur := time.Since(start).Seconds()
		status := strconv.Itoa(rr.statusCode)
		requestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(dur)
	})
}

// metricsObserver feeds generation attempts into Prometheus.
type metricsObserver struct{}

func (metricsObserver) ObserveAttempt(ctx context.Context, a engine.Attempt) {
	generationAttempts.WithLabelValues(a.Operation, a.Model, a.Outcome).Inc()
	generationDuration.WithLabelValues(a.Operation, a.Model).Observe(a.Duration.Seconds())
}

// multiObserver fans one attempt out to several observers.
type multiObserver []engine.AttemptObserver

func (m multiObserver) ObserveAttempt(ctx context.Context, a engine.Attempt) {
	for _, o := range m {
		o.ObserveAttempt(ctx, a)
	}
}
