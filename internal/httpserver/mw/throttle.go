package mw

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"bifrost/internal/utils"
)

// ThrottleConfig tunes the local per-IP token bucket that shields the
// gateway process itself. This is not the per-client quota: counters here
// are process-local and exist so a single hot client cannot starve the
// event loop before the shared limiter is even consulted.
type ThrottleConfig struct {
	RPS        int           // tokens refilled per second per IP
	Burst      int           // bucket capacity
	IdleTTL    time.Duration // drop buckets idle longer than this
	SweepEvery time.Duration // how often to look for idle buckets
	TrustProxy bool          // resolve IP from proxy headers when true
}

type throttler struct {
	cfg     ThrottleConfig
	mu      sync.Mutex
	buckets map[string]*throttleEntry
}

type throttleEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newThrottler(cfg ThrottleConfig) *throttler {
	if cfg.RPS < 1 {
		cfg.RPS = 1
	}
	if cfg.Burst < cfg.RPS {
		cfg.Burst = cfg.RPS
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = time.Minute
	}
	return &throttler{
		cfg:     cfg,
		buckets: make(map[string]*throttleEntry, 1024),
	}
}

func (t *throttler) allow(key string, now time.Time) bool {
	t.mu.Lock()
	e, ok := t.buckets[key]
	if !ok {
		e = &throttleEntry{lim: rate.NewLimiter(rate.Limit(t.cfg.RPS), t.cfg.Burst)}
		t.buckets[key] = e
	}
	e.lastSeen = now
	t.mu.Unlock()

	return e.lim.Allow()
}

func (t *throttler) sweepLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(t.cfg.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			t.mu.Lock()
			for key, e := range t.buckets {
				if now.Sub(e.lastSeen) > t.cfg.IdleTTL {
					delete(t.buckets, key)
				}
			}
			t.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// Throttle returns a middleware applying a local token bucket per client
// IP. The janitor goroutine stops when stop closes.
func Throttle(cfg ThrottleConfig, stop <-chan struct{}) func(http.Handler) http.Handler {
	t := newThrottler(cfg)
	go t.sweepLoop(stop)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := utils.ClientIP(r, t.cfg.TrustProxy)
			if !t.allow(key, time.Now()) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
