// Package httpapi serves the operational HTTP surface: probes and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/usermgmt/internal/health"
	"github.com/Proton-105/usermgmt/internal/lifecycle"
	"github.com/Proton-105/usermgmt/internal/middleware"
	"github.com/Proton-105/usermgmt/pkg/logger"
)

const checkTimeout = 2 * time.Second

type statusResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// NewRouter builds the handler for /healthz, /readyz and /metrics.
func NewRouter(log *slog.Logger, probes lifecycle.HealthChecker, checker *health.Checker) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", liveness(log, probes))
	mux.HandleFunc("GET /readyz", readiness(log, probes, checker))
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	h = middleware.Metrics(h)
	h = middleware.Logging(log)(h)
	h = logger.Middleware(h)

	return h
}

func liveness(log *slog.Logger, probes lifecycle.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := probes.Liveness(r.Context()); err != nil {
			writeJSON(log, w, http.StatusServiceUnavailable, statusResponse{Status: err.Error()})
			return
		}
		writeJSON(log, w, http.StatusOK, statusResponse{Status: "ok"})
	}
}

func readiness(log *slog.Logger, probes lifecycle.HealthChecker, checker *health.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := probes.Readiness(r.Context()); err != nil {
			writeJSON(log, w, http.StatusServiceUnavailable, statusResponse{Status: lifecycle.StateShuttingDown.String()})
			return
		}

		if checker == nil {
			writeJSON(log, w, http.StatusOK, statusResponse{Status: "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		results := checker.Check(ctx)
		if !health.Healthy(results) {
			writeJSON(log, w, http.StatusServiceUnavailable, statusResponse{Status: "degraded", Components: results})
			return
		}

		writeJSON(log, w, http.StatusOK, statusResponse{Status: "ok", Components: results})
	}
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("failed to write response", slog.Any("error", err))
	}
}
