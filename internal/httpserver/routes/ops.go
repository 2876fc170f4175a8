package routes

import (
	"github.com/go-chi/chi/v5"

	"bifrost/internal/httpserver/deps"
	"bifrost/internal/httpserver/handlers"
	"bifrost/internal/httpserver/mw"
)

func init() { Register(registerOps) }

// registerOps mounts the operational surface. Liveness and readiness stay
// open for orchestrator probes; the mutating endpoints sit behind the
// CIDR and Host allowlists.
func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
	r.Get("/readyz", handlers.Readyz(d))

	guarded := r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
	)
	guarded.Post("/reload", handlers.Reload(d))
	guarded.Post("/healthcheck", handlers.HealthCheckAll(d))
	guarded.Post("/healthcheck/{service}", handlers.HealthCheckOne(d))
}
