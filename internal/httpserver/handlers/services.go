package handlers

import (
	"net/http"
	"time"

	"bifrost/internal/httpserver/deps"
)

type serviceView struct {
	BaseURL            string  `json:"base_url"`
	HealthCheckPath    string  `json:"health_check_path"`
	TimeoutSeconds     float64 `json:"timeout_seconds"`
	RateLimitPerMinute int     `json:"rate_limit_per_minute,omitempty"`
	IsActive           bool    `json:"is_active"`
	HealthStatus       string  `json:"health_status"`
	LastCheckedAt      string  `json:"last_checked_at,omitempty"`
}

type servicesResponse struct {
	Services map[string]serviceView `json:"services"`
	Count    int                    `json:"count"`
}

// Services lists every registered service with its current health view.
func Services(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := d.Registry.All()

		out := servicesResponse{Services: make(map[string]serviceView, len(entries))}
		for _, e := range entries {
			def := e.Definition
			health := e.Health()

			view := serviceView{
				BaseURL:            def.BaseURL,
				HealthCheckPath:    def.HealthCheckPath,
				TimeoutSeconds:     def.Timeout.Seconds(),
				RateLimitPerMinute: def.RateLimitPerMinute,
				IsActive:           def.IsActive,
				HealthStatus:       string(health.Status),
			}
			if !health.LastCheckedAt.IsZero() {
				view.LastCheckedAt = health.LastCheckedAt.UTC().Format(time.RFC3339)
			}
			out.Services[def.Name] = view
		}
		out.Count = len(out.Services)

		writeJSON(w, http.StatusOK, out)
	}
}
