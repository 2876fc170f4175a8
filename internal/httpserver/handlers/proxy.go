package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bifrost/internal/httpserver/deps"
	"bifrost/internal/logger"
	"bifrost/internal/proxy"
	"bifrost/internal/ratelimit"
	"bifrost/internal/utils"
)

// Proxy is the gateway catch-all: it checks the per-client quota, resolves
// the target service, forwards the request and relays the response verbatim.
//
// The quota check runs before service resolution so a throttled client
// cannot distinguish known from unknown services while denied.
func Proxy(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "service")
		rest := chi.URLParam(r, "*")
		clientIP := utils.ClientIP(r, d.TrustProxy)

		limit := d.RateLimitPerMinute
		if entry, err := d.Registry.Lookup(name); err == nil && entry.Definition.RateLimitPerMinute > 0 {
			limit = entry.Definition.RateLimitPerMinute
		}

		dec, err := d.Limiter.Allow(r.Context(), clientIP, limit, d.RateWindow)
		if err != nil {
			d.Logger.Warn("quota check degraded",
				logger.String("client_ip", clientIP),
				logger.Bool("allowed", dec.Allowed),
				logger.Error(err))
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(dec.Remaining, 10))
		if !dec.Allowed {
			if dec.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(dec.RetryAfter.Seconds()+0.999)))
			}
			writeGatewayError(w, d.Logger, ratelimit.DeniedError(clientIP), name)
			return
		}

		entry, err := d.Proxy.Resolve(name)
		if err != nil {
			writeGatewayError(w, d.Logger, err, name)
			return
		}

		resp, err := d.Proxy.Forward(r.Context(), entry, r, rest, clientIP)
		if err != nil {
			writeGatewayError(w, d.Logger, err, name)
			return
		}

		if err := proxy.Relay(w, resp); err != nil {
			// Headers are already on the wire; nothing left but to log.
			d.Logger.Debug("relay interrupted",
				logger.String("service", name),
				logger.Error(err))
		}
	}
}
