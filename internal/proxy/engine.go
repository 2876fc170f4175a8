package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"bifrost/internal/domain"
	"bifrost/internal/logger"
	"bifrost/internal/registry"
	"bifrost/internal/utils"
)

// hopByHopHeaders are meaningful for a single transport leg only and are
// stripped in both directions (RFC 9110 section 7.6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Engine translates inbound gateway requests into upstream calls and
// classifies the outcomes. It holds no state beyond read access to the
// registry and a shared upstream client.
type Engine struct {
	registry *registry.Registry
	client   *http.Client
	logger   logger.Logger
}

// New creates a proxy engine. Per-request deadlines come from each
// service's configured timeout, so the shared client carries none.
func New(reg *registry.Registry, log logger.Logger) *Engine {
	return &Engine{
		registry: reg,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Redirects belong to the caller, not the gateway.
				return http.ErrUseLastResponse
			},
		},
		logger: log,
	}
}

// Resolve finds the target service and applies the health gate.
// Absent and inactive both map to ErrServiceNotFound; a service whose last
// probe failed maps to ErrServiceUnavailable. Unknown or checking status
// forwards optimistically: the absence of health data is not a rejection
// reason.
func (e *Engine) Resolve(name string) (*registry.Entry, error) {
	entry, err := e.registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	if entry.Health().Status == domain.HealthUnhealthy {
		return nil, fmt.Errorf("service %q: %w", name, domain.ErrServiceUnavailable)
	}
	return entry, nil
}

// Forward sends the inbound request to entry's backend at remainingPath and
// returns the upstream response with hop-by-hop headers already stripped.
//
// The call is bounded by the service's timeout; the deadline's cancel is
// tied to the response body, so relaying may stream past Forward's return
// without leaking the upstream call. Forward never retries.
func (e *Engine) Forward(ctx context.Context, entry *registry.Entry, r *http.Request, remainingPath, clientIP string) (*http.Response, error) {
	def := entry.Definition

	target := strings.TrimRight(def.BaseURL, "/") + "/" + strings.TrimPrefix(remainingPath, "/")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	ctx, cancel := context.WithTimeout(ctx, def.Timeout)

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.ContentLength = r.ContentLength
	req.Header = forwardHeaders(r.Header)
	appendForwardedFor(req.Header, clientIP)

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		cancel()
		return nil, e.classify(def.Name, err)
	}

	e.logger.Debug("request forwarded",
		logger.String("service", def.Name),
		logger.String("method", r.Method),
		logger.String("path", remainingPath),
		logger.Int("status", resp.StatusCode),
		logger.Duration("upstream_duration", time.Since(start)))

	stripHopByHop(resp.Header)
	resp.Body = &utils.CancelOnClose{ReadCloser: resp.Body, Cancel: cancel}
	return resp, nil
}

// Relay writes an upstream response back to the original caller, streaming
// the body. The status code, headers and body pass through verbatim.
func Relay(w http.ResponseWriter, resp *http.Response) error {
	defer utils.Close(resp.Body)

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to relay response body: %w", err)
	}
	return nil
}

// classify maps a transport error to the gateway taxonomy: deadline
// expiries become UpstreamTimeout, everything else network-shaped becomes
// UpstreamUnreachable.
func (e *Engine) classify(service string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("service %q: %w: %v", service, domain.ErrUpstreamTimeout, err)
	default:
		return fmt.Errorf("service %q: %w: %v", service, domain.ErrUpstreamUnreachable, err)
	}
}

// forwardHeaders copies inbound headers minus hop-by-hop ones and Host.
func forwardHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, values := range in {
		out[key] = append([]string(nil), values...)
	}
	out.Del("Host")
	stripHopByHop(out)
	return out
}

// stripHopByHop removes the fixed hop-by-hop set plus any header named in
// the Connection header itself.
func stripHopByHop(h http.Header) {
	for _, name := range h.Values("Connection") {
		for _, token := range strings.Split(name, ",") {
			if token = textproto.TrimString(token); token != "" {
				h.Del(token)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

func appendForwardedFor(h http.Header, clientIP string) {
	if clientIP == "" {
		return
	}
	if prior := h.Get("X-Forwarded-For"); prior != "" {
		h.Set("X-Forwarded-For", prior+", "+clientIP)
	} else {
		h.Set("X-Forwarded-For", clientIP)
	}
}
