package deps

import (
	"time"

	"bifrost/internal/logger"
	"bifrost/internal/proxy"
	"bifrost/internal/ratelimit"
	"bifrost/internal/registry"
	"bifrost/internal/scheduler"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	GatewayPrefix string                   // path prefix for gateway-routed traffic
	Registry      *registry.Registry       // in-memory service registry
	Proxy         *proxy.Engine            // request forwarding engine
	Monitor       *scheduler.HealthMonitor // health prober (on-demand hook)
	Limiter       *ratelimit.Limiter       // shared per-client quota

	RateLimitPerMinute int           // default quota when the service has no override
	RateWindow         time.Duration // quota window size

	AllowedHosts       []string      // Host headers allowed on ops endpoints
	AllowedCIDRS       []string      // IPs allowed on ops endpoints
	TrustProxy         bool          // true if running behind a trusted reverse proxy
	ReloadTrigger      chan struct{} // channel to trigger manual registry reload
	HealthCheckTrigger chan struct{} // channel to trigger a manual probe cycle
}
