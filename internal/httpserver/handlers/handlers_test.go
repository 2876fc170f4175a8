package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/domain"
	"bifrost/internal/health"
	"bifrost/internal/httpserver/deps"
	"bifrost/internal/logger"
	"bifrost/internal/proxy"
	"bifrost/internal/ratelimit"
	"bifrost/internal/registry"
	"bifrost/internal/scheduler"
)

func testDef(name, baseURL string) domain.ServiceDefinition {
	return domain.ServiceDefinition{
		Name:            name,
		BaseURL:         baseURL,
		HealthCheckPath: "/health",
		Timeout:         2 * time.Second,
		IsActive:        true,
	}
}

// testRouter mounts the full gateway surface the way the server does, over
// an in-memory quota store.
func testRouter(t *testing.T, defs []domain.ServiceDefinition) (*chi.Mux, deps.Deps) {
	t.Helper()

	log := logger.New("error", false)
	reg := registry.New()
	if defs != nil {
		reg.Replace(defs)
	}

	d := deps.Deps{
		Logger:    log,
		StartTime: time.Now(),
		TimeNow:   time.Now,

		GatewayPrefix: "/api/v1",
		Registry:      reg,
		Proxy:         proxy.New(reg, log),
		Monitor: scheduler.NewHealthMonitor(reg, health.NewProber(), log,
			time.Hour, make(chan struct{}, 1)),
		Limiter: ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.FailClosed, log),

		RateLimitPerMinute: 60,
		RateWindow:         time.Minute,

		ReloadTrigger:      make(chan struct{}, 1),
		HealthCheckTrigger: make(chan struct{}, 1),
	}

	r := chi.NewRouter()
	r.Route(d.GatewayPrefix, func(r chi.Router) {
		r.Get("/services", Services(d))
		r.Get("/services/{service}/health", ServiceHealth(d))
		fwd := Proxy(d)
		for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			r.MethodFunc(m, "/{service}", fwd)
			r.MethodFunc(m, "/{service}/*", fwd)
		}
	})
	r.Get("/healthz", Healthz(d))
	r.Get("/readyz", Readyz(d))
	r.Post("/reload", Reload(d))
	r.Post("/healthcheck", HealthCheckAll(d))
	r.Post("/healthcheck/{service}", HealthCheckOne(d))

	return r, d
}

func decodeError(t *testing.T, body io.Reader) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&e))
	return e
}

func TestProxyRelaysVerbatim(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Backend", "users-svc")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery))
	}))
	defer upstream.Close()

	router, _ := testRouter(t, []domain.ServiceDefinition{testDef("users", upstream.URL)})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/accounts/7?verbose=1", strings.NewReader("payload"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "users-svc", rec.Header().Get("X-Backend"))
	assert.Equal(t, "POST /accounts/7?verbose=1", rec.Body.String())
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
}

func TestProxyUnknownServiceSkipsUpstream(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	router, _ := testRouter(t, []domain.ServiceDefinition{testDef("users", upstream.URL)})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ghost/anything", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int64(0), calls.Load())
	e := decodeError(t, rec.Body)
	assert.Equal(t, "ghost", e.Service)
	assert.Contains(t, e.Error, "not found")
}

func TestProxyInactiveServiceIsNotFound(t *testing.T) {
	def := testDef("users", "http://127.0.0.1:1")
	def.IsActive = false
	router, _ := testRouter(t, []domain.ServiceDefinition{def})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/x", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProxyUnhealthyServiceIsUnavailable(t *testing.T) {
	var calls atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	router, d := testRouter(t, []domain.ServiceDefinition{testDef("users", upstream.URL)})
	d.Registry.UpdateHealth("users", domain.HealthUnhealthy, time.Now())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/x", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, int64(0), calls.Load())
}

func TestProxyPerServiceQuota(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	def := testDef("users", upstream.URL)
	def.RateLimitPerMinute = 2
	router, _ := testRouter(t, []domain.ServiceDefinition{def})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/x", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/x", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	e := decodeError(t, rec.Body)
	assert.Contains(t, e.Error, "rate limit exceeded")
}

func TestProxyUpstreamDownIsBadGateway(t *testing.T) {
	router, _ := testRouter(t, []domain.ServiceDefinition{testDef("users", "http://127.0.0.1:1")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/x", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServicesList(t *testing.T) {
	router, d := testRouter(t, []domain.ServiceDefinition{
		testDef("users", "http://users.internal"),
		testDef("orders", "http://orders.internal"),
	})
	d.Registry.UpdateHealth("users", domain.HealthHealthy, time.Now())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/services", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp servicesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "healthy", resp.Services["users"].HealthStatus)
	assert.NotEmpty(t, resp.Services["users"].LastCheckedAt)
	assert.Equal(t, "unknown", resp.Services["orders"].HealthStatus)
	assert.Equal(t, "http://orders.internal", resp.Services["orders"].BaseURL)
	assert.Equal(t, 2.0, resp.Services["orders"].TimeoutSeconds)
}

func TestServiceHealthView(t *testing.T) {
	router, d := testRouter(t, []domain.ServiceDefinition{testDef("users", "http://users.internal")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/services/users/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp serviceHealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.Healthy)
	assert.Equal(t, "unknown", resp.Status)

	d.Registry.UpdateHealth("users", domain.HealthHealthy, time.Now())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/services/users/health", nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Healthy)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/services/ghost/health", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReloadTriggerBackpressure(t *testing.T) {
	router, d := testRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-d.ReloadTrigger:
	default:
		t.Fatal("expected a reload trigger signal")
	}

	// Refill the channel to simulate a reload still pending.
	d.ReloadTrigger <- struct{}{}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestReadyzFollowsRegistryLoad(t *testing.T) {
	router, d := testRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	d.Registry.Replace([]domain.ServiceDefinition{testDef("users", "http://users.internal")})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthCheckOneProbesSynchronously(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	router, d := testRouter(t, []domain.ServiceDefinition{testDef("users", upstream.URL)})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthcheck/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthCheckOneResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)

	state, err := d.Registry.Lookup("users")
	require.NoError(t, err)
	assert.Equal(t, domain.HealthHealthy, state.Health().Status)
}

func TestHealthzAlwaysOK(t *testing.T) {
	router, _ := testRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp healthzResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}
