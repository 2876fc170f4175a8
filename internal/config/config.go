package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	GatewayPrefix       string        // path prefix for gateway-routed traffic (ex: "/api/v1")
	ServiceFile         string        // path to the services.yaml record file
	ReloadInterval      time.Duration // interval to reload service definitions (default: 5m)
	HealthCheckInterval time.Duration // interval between health probe cycles (default: 30s)
	DefaultTimeout      time.Duration // upstream timeout for services without their own (default: 30s)

	// Rate limiting
	RateLimitPerMinute  int    // default per-client quota, overridable per service
	RateLimitFailPolicy string // "closed" | "open" when the counter store is unreachable
	ThrottleRPS         int    // local per-IP token refill rate (gateway self-protection)
	ThrottleBurst       int    // local per-IP bucket capacity

	// Redis
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedHosts []string // optional, restrict ops endpoints to specific Host headers
	AllowedCIDRS []string // optional, restrict ops endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("BIFROST_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("BIFROST_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("BIFROST_LOG_LEVEL", "info"),
		PrettyLog: mustBool("BIFROST_PRETTY_LOG", false),

		// Registry
		GatewayPrefix:       getenv("BIFROST_GATEWAY_PREFIX", "/api/v1"),
		ServiceFile:         requireEnv("BIFROST_SERVICE_FILE"),
		ReloadInterval:      mustDuration("BIFROST_RELOAD_INTERVAL", 5*time.Minute),
		HealthCheckInterval: mustDuration("BIFROST_HEALTH_CHECK_INTERVAL", 30*time.Second),
		DefaultTimeout:      mustDuration("BIFROST_DEFAULT_TIMEOUT", 30*time.Second),

		// Rate limiting
		RateLimitPerMinute:  getenvInt("BIFROST_RATE_LIMIT_PER_MINUTE", 60),
		RateLimitFailPolicy: getenv("BIFROST_RATE_LIMIT_FAIL_POLICY", "closed"),
		ThrottleRPS:         getenvInt("BIFROST_THROTTLE_RPS", 50),
		ThrottleBurst:       getenvInt("BIFROST_THROTTLE_BURST", 100),

		// Redis settings
		RedisAddr:           requireEnv("BIFROST_REDIS_ADDR"),
		RedisUser:           getenv("BIFROST_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("BIFROST_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("BIFROST_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions (ops endpoints)
		AllowedHosts: splitAndTrim(getenv("BIFROST_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("BIFROST_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("BIFROST_TRUST_PROXY", false),
	}

	if !strings.HasPrefix(cfg.GatewayPrefix, "/") {
		panic(fmt.Sprintf("❌ FATAL: BIFROST_GATEWAY_PREFIX must start with '/', got %q", cfg.GatewayPrefix))
	}
	cfg.GatewayPrefix = strings.TrimRight(cfg.GatewayPrefix, "/")
	if cfg.GatewayPrefix == "" {
		panic("❌ FATAL: BIFROST_GATEWAY_PREFIX must not be the root path")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
