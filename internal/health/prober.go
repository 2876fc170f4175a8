package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"bifrost/internal/domain"
	"bifrost/internal/utils"
)

// Prober performs single liveness probes against service health endpoints.
// One shared client, keep-alives disabled: probes are sparse and must not
// pin idle connections to every backend.
type Prober struct {
	client *http.Client
}

// NewProber creates a prober.
func NewProber() *Prober {
	return &Prober{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 0,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				DisableKeepAlives:   true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// A redirecting health endpoint is not a healthy endpoint.
				return http.ErrUseLastResponse
			},
		},
	}
}

// Probe checks the health endpoint of def once, bounded by the service's
// own timeout. A 2xx response within the deadline is healthy; anything
// else (timeout, network error, non-2xx) is not.
func (p *Prober) Probe(ctx context.Context, def domain.ServiceDefinition) error {
	ctx, cancel := context.WithTimeout(ctx, def.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, def.HealthURL(), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}
