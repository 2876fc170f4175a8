package domain

import (
	"errors"
	"net/http"
)

// Gateway error taxonomy. Every request-path failure maps to exactly one of
// these, so callers always receive a determinate HTTP status.
var (
	// ErrServiceNotFound covers both unregistered and inactive services;
	// the gateway does not reveal inactive services.
	ErrServiceNotFound = errors.New("service not found")

	// ErrServiceUnavailable means the service is registered but its last
	// probe marked it unhealthy.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrRateLimitExceeded means the per-client quota denied the request.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrUpstreamTimeout means the forwarded call exceeded the service's
	// configured timeout.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstreamUnreachable means connection refusal, DNS failure or any
	// other network-level error before a response was received.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrReloadFailure means the service record store could not be read.
	// Never surfaced to in-flight requests; the registry keeps serving its
	// last-known-good snapshot.
	ErrReloadFailure = errors.New("registry reload failure")
)

// HTTPStatus maps a gateway error to its response status code.
// Unrecognized errors fall through to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrServiceNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUpstreamUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
