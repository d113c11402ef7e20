package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	operationsTotal       *prometheus.CounterVec
	reviewDecisionsTotal  *prometheus.CounterVec
	documentsExpiredTotal *prometheus.CounterVec
	reportsGeneratedTotal *prometheus.CounterVec
	blobUploadBytes       *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsportal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opsportal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "opsportal",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	operationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsportal",
			Subsystem: "compliance",
			Name:      "operations_total",
			Help:      "Total completed compliance operations by outcome.",
		},
		[]string{"service", "module", "operation", "outcome"},
	)
	reviewDecisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsportal",
			Subsystem: "compliance",
			Name:      "review_decisions_total",
			Help:      "Total document review decisions applied.",
		},
		[]string{"service", "decision"},
	)
	documentsExpiredTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsportal",
			Subsystem: "compliance",
			Name:      "documents_expired_total",
			Help:      "Total approved documents converged to expired.",
		},
		[]string{"service", "trigger"},
	)
	reportsGeneratedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsportal",
			Subsystem: "compliance",
			Name:      "reports_generated_total",
			Help:      "Total compliance reports generated by format.",
		},
		[]string{"service", "format"},
	)
	blobUploadBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opsportal",
			Subsystem: "storage",
			Name:      "upload_bytes",
			Help:      "Distribution of uploaded document sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		operationsTotal,
		reviewDecisionsTotal,
		documentsExpiredTotal,
		reportsGeneratedTotal,
		blobUploadBytes,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		operationsTotal:       operationsTotal,
		reviewDecisionsTotal:  reviewDecisionsTotal,
		documentsExpiredTotal: documentsExpiredTotal,
		reportsGeneratedTotal: reportsGeneratedTotal,
		blobUploadBytes:       blobUploadBytes,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses resource ids so the path label stays low-cardinality.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/startup-folders/"):
		rest := strings.TrimPrefix(path, "/v1/startup-folders/")
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return "/v1/startup-folders/{id}/" + rest[i+1:]
		}
		return "/v1/startup-folders/{id}"
	case strings.HasPrefix(path, "/v1/folders/"):
		return "/v1/folders/{id}/documents"
	case strings.HasPrefix(path, "/v1/documents/"):
		if strings.HasSuffix(path, "/review") {
			return "/v1/documents/{id}/review"
		}
		return "/v1/documents/{id}"
	case strings.HasPrefix(path, "/v1/companies/"):
		return "/v1/companies/{id}/compliance-report"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordOperation(service, module, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operationsTotal.WithLabelValues(service, module, operation, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordReviewDecision(service, decision string) {
	if decision == "" {
		decision = "unknown"
	}
	m.reviewDecisionsTotal.WithLabelValues(service, decision).Inc()
}

func (m *HTTPServerMetrics) RecordExpiredDocuments(service, trigger string, count int) {
	if count <= 0 {
		return
	}
	m.documentsExpiredTotal.WithLabelValues(service, trigger).Add(float64(count))
}

func (m *HTTPServerMetrics) RecordReportGenerated(service, format string) {
	if format == "" {
		format = "json"
	}
	m.reportsGeneratedTotal.WithLabelValues(service, format).Inc()
}

func (m *HTTPServerMetrics) ObserveUploadSize(service string, bytes int64) {
	if bytes <= 0 {
		return
	}
	m.blobUploadBytes.WithLabelValues(service).Observe(float64(bytes))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
