package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	simplifyTotal      *prometheus.CounterVec
	simplifyDuration   *prometheus.HistogramVec
	simplifyInputChars *prometheus.HistogramVec
	simplifyOutChars   *prometheus.HistogramVec
	truncatedTotal     *prometheus.CounterVec
	inferenceReady     *prometheus.GaugeVec
	inferenceRetries   *prometheus.CounterVec
	circuitState       *prometheus.GaugeVec
}

var charBuckets = []float64{10, 100, 500, 1000, 2000, 4000, 8000, 16000, 64000}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsimp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsimp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docsimp",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	simplifyTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsimp",
			Subsystem: "simplify",
			Name:      "requests_total",
			Help:      "Total simplification requests by input source and outcome.",
		},
		[]string{"service", "source", "status"},
	)
	simplifyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsimp",
			Subsystem: "simplify",
			Name:      "inference_duration_seconds",
			Help:      "Wall clock time of successful inference calls.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 240, 500},
		},
		[]string{"service", "source"},
	)
	simplifyInputChars := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsimp",
			Subsystem: "simplify",
			Name:      "input_chars",
			Help:      "Characters of original text per successful simplification.",
			Buckets:   charBuckets,
		},
		[]string{"service"},
	)
	simplifyOutChars := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsimp",
			Subsystem: "simplify",
			Name:      "output_chars",
			Help:      "Characters of simplified text per successful simplification.",
			Buckets:   charBuckets,
		},
		[]string{"service"},
	)
	truncatedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsimp",
			Subsystem: "simplify",
			Name:      "truncated_total",
			Help:      "Simplifications whose input exceeded the prompt character cap.",
		},
		[]string{"service"},
	)
	inferenceReady := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "docsimp",
			Subsystem: "inference",
			Name:      "ready",
			Help:      "1 when the last status check found the model registered, 0 otherwise.",
		},
		[]string{"service", "model"},
	)

	inferenceRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsimp",
			Subsystem: "inference",
			Name:      "retries_total",
			Help:      "Retried inference calls by operation.",
		},
		[]string{"service", "operation"},
	)
	circuitState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "docsimp",
			Subsystem: "inference",
			Name:      "circuit_state",
			Help:      "Circuit breaker state by operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		simplifyTotal,
		simplifyDuration,
		simplifyInputChars,
		simplifyOutChars,
		truncatedTotal,
		inferenceReady,
		inferenceRetries,
		circuitState,
	)

	return &HTTPServerMetrics{
		service:            service,
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		simplifyTotal:      simplifyTotal,
		simplifyDuration:   simplifyDuration,
		simplifyInputChars: simplifyInputChars,
		simplifyOutChars:   simplifyOutChars,
		truncatedTotal:     truncatedTotal,
		inferenceReady:     inferenceReady,
		inferenceRetries:   inferenceRetries,
		circuitState:       circuitState,
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

// normalizePath folds unknown paths into one label value to bound cardinality.
func normalizePath(path string) string {
	switch path {
	case "/healthz", "/metrics", "/v1/status", "/v1/simplify":
		return path
	default:
		return "other"
	}
}

func (m *HTTPServerMetrics) RecordSimplification(service, source string, inputChars, outputChars int, truncated bool, elapsed time.Duration) {
	if source == "" {
		source = "unknown"
	}
	m.simplifyTotal.WithLabelValues(service, source, "success").Inc()
	m.simplifyDuration.WithLabelValues(service, source).Observe(elapsed.Seconds())
	m.simplifyInputChars.WithLabelValues(service).Observe(float64(inputChars))
	m.simplifyOutChars.WithLabelValues(service).Observe(float64(outputChars))
	if truncated {
		m.truncatedTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordSimplificationFailure(service, source, reason string) {
	if source == "" {
		source = "unknown"
	}
	if reason == "" {
		reason = "error"
	}
	m.simplifyTotal.WithLabelValues(service, source, reason).Inc()
}

func (m *HTTPServerMetrics) RecordInferenceReady(service, model string, ready bool) {
	value := 0.0
	if ready {
		value = 1
	}
	m.inferenceReady.WithLabelValues(service, model).Set(value)
}

func (m *HTTPServerMetrics) ObserveRetry(operation string) {
	m.inferenceRetries.WithLabelValues(m.service, operation).Inc()
}

func (m *HTTPServerMetrics) ObserveCircuitState(operation, state string) {
	value := 0.0
	switch state {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	m.circuitState.WithLabelValues(m.service, operation).Set(value)
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
