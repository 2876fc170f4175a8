package domain

import (
	"strings"
	"time"
)

// HealthStatus is the liveness state of a service as observed by the
// health monitor.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthChecking  HealthStatus = "checking"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// ServiceDefinition is the canonical routing description of one backend.
//
// It is the unit stored in the service record store and loaded into the
// registry. A definition is uniquely identified by Name.
type ServiceDefinition struct {
	// Name is the unique identifier, used as the path segment selector.
	// Example: qshing-server
	Name string `json:"name"`

	// BaseURL is the upstream origin (scheme + host + optional port).
	// Example: https://qshing-server.example.com
	BaseURL string `json:"base_url"`

	// HealthCheckPath is the relative path probed for liveness.
	HealthCheckPath string `json:"health_check_path"`

	// Timeout bounds both health probes and proxied requests.
	Timeout time.Duration `json:"timeout"`

	// RateLimitPerMinute overrides the global per-client quota when > 0.
	RateLimitPerMinute int `json:"rate_limit_per_minute"`

	// IsActive hides the service from the proxy when false.
	IsActive bool `json:"is_active"`

	// UpdatedAt is updated on any mutation of the record.
	UpdatedAt time.Time `json:"updated_at"`
}

// HealthURL returns the absolute URL probed by the health monitor.
func (d ServiceDefinition) HealthURL() string {
	base := strings.TrimRight(d.BaseURL, "/")
	path := d.HealthCheckPath
	if path == "" {
		path = "/health"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// SameProbeTarget reports whether two definitions probe the same endpoint,
// which decides whether health state survives a registry reload.
func (d ServiceDefinition) SameProbeTarget(other ServiceDefinition) bool {
	return d.BaseURL == other.BaseURL && d.HealthCheckPath == other.HealthCheckPath
}

// HealthState is the mutable health sub-record of a registry entry.
// Owned by the health monitor, read by the proxy engine.
type HealthState struct {
	Status        HealthStatus `json:"status"`
	LastCheckedAt time.Time    `json:"last_checked_at"`
}
