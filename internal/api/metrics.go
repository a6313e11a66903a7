package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
)

// Metrics holds the server's prometheus collectors. Each server owns its
// registry so several servers can live in one process.
type Metrics struct {
	registry     *prometheus.Registry
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	requests     *prometheus.CounterVec
}

// NewMetrics registers the oracle and HTTP collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rps_oracle_calls_total",
				Help: "Dispatched oracle calls by function and result",
			},
			[]string{"function", "result"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rps_oracle_call_duration_seconds",
				Help:    "Oracle call latency by function",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
			[]string{"function"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rps_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
	m.registry.MustRegister(
		m.calls,
		m.callDuration,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCall records one dispatched call. Invalid moves count as reverts.
func (m *Metrics) ObserveCall(function string, err error, took time.Duration) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, games.ErrInvalidMove):
		result = "revert"
	default:
		result = "error"
	}
	m.calls.WithLabelValues(function, result).Inc()
	m.callDuration.WithLabelValues(function).Observe(took.Seconds())
}

// Middleware counts requests by their chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}
