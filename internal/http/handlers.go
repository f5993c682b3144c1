package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"finsight/internal/core"
	"finsight/internal/ledger"
	"finsight/internal/ledger/remote"
	"finsight/internal/log"
	"finsight/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "not_checked"
	}

	checks["analysis"] = map[string]interface{}{
		"configured": s.analysis.Available(),
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	written := atomic.LoadInt64(&s.appMetrics.transactionsWritten)
	analyses := atomic.LoadInt64(&s.appMetrics.analyses)
	analysisFailures := atomic.LoadInt64(&s.appMetrics.analysisFailures)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP transactions_written_total Transactions created, updated or deleted\n")
	fmt.Fprintf(w, "# TYPE transactions_written_total counter\n")
	fmt.Fprintf(w, "transactions_written_total %d\n\n", written)

	fmt.Fprintf(w, "# HELP analysis_requests_total Analysis requests\n")
	fmt.Fprintf(w, "# TYPE analysis_requests_total counter\n")
	fmt.Fprintf(w, "analysis_requests_total %d\n\n", analyses)

	fmt.Fprintf(w, "# HELP analysis_failures_total Analysis requests that failed\n")
	fmt.Fprintf(w, "# TYPE analysis_failures_total counter\n")
	fmt.Fprintf(w, "analysis_failures_total %d\n\n", analysisFailures)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", uptime.Seconds())
}

var validationErrors = []error{
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrInvalidType,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrEmptyCategory,
	core.ErrCategoryTypeMismatch,
	services.ErrEmptyPatch,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps ledger and validation errors to HTTP status codes.
func statusFor(err error) int {
	var statusErr *remote.StatusError
	switch {
	case isValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the text shown to clients for err; internal causes are
// only logged.
func publicMessage(status int, err error) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return err.Error()
	case http.StatusNotFound:
		return "transaction not found"
	case http.StatusServiceUnavailable:
		return "transaction backend not configured"
	case http.StatusGatewayTimeout:
		return "transaction backend timed out"
	case http.StatusBadGateway:
		return "transaction backend error"
	default:
		return "internal error"
	}
}

func (s *Server) logFailure(r *http.Request, msg string, err error, op string) {
	errorType := log.ErrorTypeInternal
	switch statusFor(err) {
	case http.StatusUnprocessableEntity:
		errorType = log.ErrorTypeValidation
	case http.StatusNotFound:
		errorType = log.ErrorTypeNotFound
	case http.StatusServiceUnavailable:
		errorType = log.ErrorTypeConfiguration
	case http.StatusGatewayTimeout:
		errorType = log.ErrorTypeTimeout
	case http.StatusBadGateway:
		errorType = log.ErrorTypeNetwork
	}

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	level := logger.ErrorContext
	if errorType == log.ErrorTypeValidation || errorType == log.ErrorTypeNotFound {
		level = logger.WarnContext
	}
	level(r.Context(), msg,
		log.FieldError, err.Error(),
		log.FieldOperation, op,
		"error_type", errorType)
}
