package servicefile

import (
	"fmt"
	"net/url"
	"time"

	"bifrost/internal/domain"
)

// Mapper converts raw service records to domain.ServiceDefinition entities,
// resolving defaults once at load time rather than per request.
type Mapper struct {
	defaultTimeout time.Duration
}

// NewMapper creates a new mapper instance. defaultTimeout applies to
// records that do not set their own.
func NewMapper(defaultTimeout time.Duration) *Mapper {
	return &Mapper{defaultTimeout: defaultTimeout}
}

// MapServices converts a ServicesConfig to []domain.ServiceDefinition.
// Records failing validation abort the whole mapping: a half-loaded catalog
// must never replace a good snapshot.
func (m *Mapper) MapServices(config ServicesConfig) ([]domain.ServiceDefinition, error) {
	if len(config.Services) == 0 {
		return nil, fmt.Errorf("no services found in config")
	}

	now := time.Now()
	seen := make(map[string]bool, len(config.Services))
	defs := make([]domain.ServiceDefinition, 0, len(config.Services))

	for i, props := range config.Services {
		if props.Name == "" {
			return nil, fmt.Errorf("service #%d: name is required", i)
		}
		if seen[props.Name] {
			return nil, fmt.Errorf("service %q: duplicate name", props.Name)
		}
		seen[props.Name] = true

		parsed, err := url.Parse(props.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("service %q: invalid base_url %q", props.Name, props.BaseURL)
		}

		timeout := m.defaultTimeout
		if props.Timeout != "" {
			timeout, err = time.ParseDuration(props.Timeout)
			if err != nil || timeout <= 0 {
				return nil, fmt.Errorf("service %q: invalid timeout %q", props.Name, props.Timeout)
			}
		}

		healthPath := props.HealthCheckPath
		if healthPath == "" {
			healthPath = "/health"
		}

		active := true
		if props.Active != nil {
			active = *props.Active
		}

		defs = append(defs, domain.ServiceDefinition{
			Name:               props.Name,
			BaseURL:            props.BaseURL,
			HealthCheckPath:    healthPath,
			Timeout:            timeout,
			RateLimitPerMinute: props.RateLimitPerMinute,
			IsActive:           active,
			UpdatedAt:          now,
		})
	}

	return defs, nil
}
