package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cicerogomeslima/bankmore/internal/domain"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankmore_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bankmore_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})
)

func respondJSON(w http.ResponseWriter, code int, payload any, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondFailure writes a structured failure payload. Internal errors
// are masked as a generic upstream failure; domain failures travel
// with their own kind, message and status.
func respondFailure(w http.ResponseWriter, err error, method, endpoint string) {
	var f *domain.Failure
	if !errors.As(err, &f) {
		f = domain.NewFailure(domain.FailureUpstream, http.StatusInternalServerError, "internal error")
	}
	respondJSON(w, f.Status, f, method, endpoint)
}

// respondStored replays a previously recorded outcome bit-for-bit.
func respondStored(w http.ResponseWriter, status int, body []byte, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	if len(body) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if len(body) > 0 {
		w.Write(body)
	}
}

// callerID extracts the gateway-validated account identity. The
// gateway owns token validation; these services trust its header.
func callerID(r *http.Request) string {
	return r.Header.Get("X-Account-Id")
}

// idempotencyKey resolves the dedup key: an explicit header when the
// client sent one, otherwise the request's own identification field.
func idempotencyKey(r *http.Request, requestID string) string {
	if k := r.Header.Get("Idempotency-Key"); k != "" {
		return k
	}
	return requestID
}
