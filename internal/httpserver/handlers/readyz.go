package handlers

import (
	"net/http"

	"bifrost/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready    bool `json:"ready"`
	Services int  `json:"services"`
}

// Readyz reports ready once the registry has completed at least one
// successful load. An empty-but-loaded registry is still ready.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		ready := d.Registry.Loaded()
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{
			Ready:    ready,
			Services: d.Registry.Count(),
		})
	}
}
