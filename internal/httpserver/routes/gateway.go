package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bifrost/internal/httpserver/deps"
	"bifrost/internal/httpserver/handlers"
)

func init() { Register(registerGateway) }

var proxiedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
}

// registerGateway mounts the routed surface under the configured prefix:
// the service listing, the per-service health view, and the catch-all
// proxy route. The static /services branch wins over the {service} param,
// so "services" is effectively a reserved service name.
func registerGateway(r chi.Router, d deps.Deps) {
	r.Route(d.GatewayPrefix, func(r chi.Router) {
		r.Get("/services", handlers.Services(d))
		r.Get("/services/{service}/health", handlers.ServiceHealth(d))

		forward := handlers.Proxy(d)
		for _, m := range proxiedMethods {
			r.MethodFunc(m, "/{service}", forward)
			r.MethodFunc(m, "/{service}/*", forward)
		}
	})
}
