package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bifrost/internal/domain"
	"bifrost/internal/httpserver/deps"
)

type serviceHealthResponse struct {
	Service       string `json:"service"`
	Healthy       bool   `json:"healthy"`
	Status        string `json:"status"`
	LastCheckedAt string `json:"last_checked_at,omitempty"`
}

// ServiceHealth reports the cached health verdict for one service.
// It never probes; the monitor owns probing.
func ServiceHealth(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "service")

		entry, err := d.Registry.Lookup(name)
		if err != nil {
			writeGatewayError(w, d.Logger, err, name)
			return
		}

		health := entry.Health()
		resp := serviceHealthResponse{
			Service: name,
			Healthy: health.Status == domain.HealthHealthy,
			Status:  string(health.Status),
		}
		if !health.LastCheckedAt.IsZero() {
			resp.LastCheckedAt = health.LastCheckedAt.UTC().Format(time.RFC3339)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
