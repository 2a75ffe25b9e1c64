package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles prometheus collectors used by the risk analyzer.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	PipelineRuns       prometheus.Counter
	PipelineFailures   prometheus.Counter
	OverallScore       prometheus.Gauge
	NotificationsSent  prometheus.Counter
	AlertsGenerated    *prometheus.CounterVec
	RateLimitDropped   prometheus.Counter
	ActiveStreams      prometheus.Gauge
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_analyzer_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "risk_analyzer_request_duration_seconds",
			Help:    "Request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		PipelineRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risk_analyzer_pipeline_runs_total",
			Help: "Total number of completed assessment pipeline runs.",
		}),
		PipelineFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risk_analyzer_pipeline_failures_total",
			Help: "Total number of failed assessment pipeline runs.",
		}),
		OverallScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "risk_analyzer_overall_score",
			Help: "Overall risk score from the latest completed run.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risk_analyzer_notifications_sent_total",
			Help: "Total number of runs that dispatched notifications.",
		}),
		AlertsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "risk_analyzer_alerts_generated_total",
			Help: "Total number of generated alerts by severity.",
		}, []string{"severity"}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "risk_analyzer_ratelimit_dropped_total",
			Help: "Total number of requests dropped by rate limiter.",
		}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "risk_analyzer_active_streams",
			Help: "Number of active event stream subscribers.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.PipelineRuns,
		m.PipelineFailures,
		m.OverallScore,
		m.NotificationsSent,
		m.AlertsGenerated,
		m.RateLimitDropped,
		m.ActiveStreams,
	)

	return m
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

func normalizeRoute(path string) string {
	switch {
	case path == "/ws":
		return "/ws"
	case path == "/api/v1/risk-assessment/stream":
		return "/api/v1/risk-assessment/stream"
	case path == "/api/v1/risk-assessment" || hasPrefix(path, "/api/v1/risk-assessment/"):
		return "/api/v1/risk-assessment/*"
	case path == "/api/v1" || hasPrefix(path, "/api/v1/"):
		return "/api/v1/*"
	case path == "/api" || hasPrefix(path, "/api/"):
		return "/api/*"
	default:
		return "other"
	}
}

func hasPrefix(value, prefix string) bool {
	if len(value) < len(prefix) {
		return false
	}
	return value[:len(prefix)] == prefix
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Push proxies HTTP/2 server push when available.
func (rw *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := rw.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
