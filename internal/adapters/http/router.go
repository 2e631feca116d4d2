package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/kirillkom/doc-simplifier/internal/config"
	"github.com/kirillkom/doc-simplifier/internal/core/domain"
	"github.com/kirillkom/doc-simplifier/internal/core/ports"
	"github.com/kirillkom/doc-simplifier/internal/observability/metrics"
)

const (
	ServiceName = "doc-simplifier-api"

	sourceText   = "text"
	sourceUpload = "upload"

	multipartMemory = 32 << 20
)

type Router struct {
	cfg        config.Config
	simplifier ports.DocumentSimplifier
	status     ports.EndpointStatusChecker
	metrics    *metrics.HTTPServerMetrics
	validate   *validator.Validate
}

func NewRouter(
	cfg config.Config,
	simplifier ports.DocumentSimplifier,
	status ports.EndpointStatusChecker,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:        cfg,
		simplifier: simplifier,
		status:     status,
		metrics:    httpMetrics,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/status", rt.endpointStatus)
	mux.Handle("/v1/simplify", backpressureMiddleware(
		http.HandlerFunc(rt.simplify),
		rt.cfg.APIMaxInFlight,
		rt.cfg.APIQueueTimeout(),
	))
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.APIRateLimitRPS > 0 {
		burst := rt.cfg.APIRateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		handler = rateLimitMiddleware(handler, rate.NewLimiter(rate.Limit(rt.cfg.APIRateLimitRPS), burst))
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(ServiceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return otelhttp.NewHandler(handler, ServiceName)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) endpointStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	status, err := rt.status.Check(r.Context())
	if rt.metrics != nil && status != nil {
		rt.metrics.RecordInferenceReady(ServiceName, status.Model, err == nil && status.ModelAvailable)
	}
	if err != nil {
		slog.WarnContext(r.Context(), "inference_status_check_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]any{
			"error":  err.Error(),
			"status": status,
		})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type simplifyRequest struct {
	Text      string `json:"text" validate:"required"`
	MaxLength *int   `json:"max_length" validate:"omitempty,gt=0"`
}

func (rt *Router) simplify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		rt.simplifyMultipart(w, r)
		return
	}
	rt.simplifyJSON(w, r)
}

func (rt *Router) simplifyJSON(w http.ResponseWriter, r *http.Request) {
	var req simplifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeRequestError(w, r, sourceText, err, "invalid json")
		return
	}
	if err := rt.validate.Struct(req); err != nil {
		rt.writeRequestError(w, r, sourceText, err, "text is required and max_length must be positive")
		return
	}

	maxLength := rt.cfg.SimplifyMaxLength
	if req.MaxLength != nil {
		maxLength = *req.MaxLength
	}

	result, err := rt.simplifier.SimplifyText(r.Context(), req.Text, maxLength)
	rt.respond(w, r, sourceText, result, err)
}

func (rt *Router) simplifyMultipart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		rt.writeRequestError(w, r, sourceUpload, err, "invalid multipart form")
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	maxLength, err := parseMaxLength(r.FormValue("max_length"), rt.cfg.SimplifyMaxLength)
	if err != nil {
		rt.writeRequestError(w, r, sourceUpload, err, err.Error())
		return
	}

	// an uploaded file takes precedence over the text field
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		result, err := rt.simplifier.SimplifyUpload(r.Context(), header.Filename, file, maxLength)
		rt.respond(w, r, sourceUpload, result, err)
	case errors.Is(err, http.ErrMissingFile):
		result, err := rt.simplifier.SimplifyText(r.Context(), r.FormValue("text"), maxLength)
		rt.respond(w, r, sourceText, result, err)
	default:
		rt.writeRequestError(w, r, sourceUpload, err, "multipart field 'file' is unreadable")
	}
}

func parseMaxLength(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("max_length must be a positive integer, got %q", raw)
	}
	return n, nil
}

func (rt *Router) respond(w http.ResponseWriter, r *http.Request, source string, result *domain.SimplificationResult, err error) {
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		logAttrs := []any{
			"request_id", requestIDFromContext(r.Context()),
			"source", source,
			"status", status,
			"error", err,
		}
		if status >= http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "simplification_failed", logAttrs...)
		} else {
			slog.WarnContext(r.Context(), "simplification_failed", logAttrs...)
		}
		if rt.metrics != nil {
			rt.metrics.RecordSimplificationFailure(ServiceName, source, errorReason(err))
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	slog.InfoContext(r.Context(), "simplification_completed",
		"request_id", requestIDFromContext(r.Context()),
		"source", source,
		"model", result.Model,
		"elapsed_seconds", result.ElapsedSeconds,
		"original_length", result.OriginalLength,
		"simplified_length", result.SimplifiedLength,
		"truncated", result.Truncated,
	)
	if rt.metrics != nil {
		rt.metrics.RecordSimplification(
			ServiceName,
			source,
			result.OriginalLength,
			result.SimplifiedLength,
			result.Truncated,
			result.Elapsed,
		)
	}
	writeJSON(w, http.StatusOK, result)
}

// writeRequestError answers a malformed request; oversized bodies become 413.
func (rt *Router) writeRequestError(w http.ResponseWriter, r *http.Request, source string, err error, message string) {
	status := http.StatusBadRequest
	reason := "invalid_input"
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
		reason = "too_large"
		message = fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
	}

	slog.WarnContext(r.Context(), "simplify_request_rejected",
		"request_id", requestIDFromContext(r.Context()),
		"source", source,
		"status", status,
		"error", err,
	)
	if rt.metrics != nil {
		rt.metrics.RecordSimplificationFailure(ServiceName, source, reason)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
