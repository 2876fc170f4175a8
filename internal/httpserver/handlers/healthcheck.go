package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bifrost/internal/httpserver/deps"
	"bifrost/internal/logger"
)

// HealthCheckAll triggers an immediate probe cycle over every active service.
// The cycle runs on the monitor goroutine; the handler only signals it.
func HealthCheckAll(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.HealthCheckTrigger <- struct{}{}:
			d.Logger.Info("manual health check cycle triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "health check triggered"})
		default:
			d.Logger.Warn("health check cycle already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"status": "health check already in progress"})
		}
	}
}

type healthCheckOneResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

// HealthCheckOne probes a single service synchronously and returns the fresh
// verdict. Unlike the cached health endpoint, this one blocks on the probe.
func HealthCheckOne(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "service")

		status, err := d.Monitor.ProbeOne(r.Context(), name)
		if err != nil {
			writeGatewayError(w, d.Logger, err, name)
			return
		}

		writeJSON(w, http.StatusOK, healthCheckOneResponse{
			Service: name,
			Status:  string(status),
		})
	}
}
