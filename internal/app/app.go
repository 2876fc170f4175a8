package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"bifrost/internal/config"
	"bifrost/internal/health"
	"bifrost/internal/httpserver"
	"bifrost/internal/httpserver/deps"
	"bifrost/internal/logger"
	"bifrost/internal/proxy"
	"bifrost/internal/ratelimit"
	"bifrost/internal/redis"
	"bifrost/internal/registry"
	"bifrost/internal/scheduler"
	redisstore "bifrost/internal/store/redis"
	"bifrost/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	reloader    *scheduler.RegistryReloader
	monitor     *scheduler.HealthMonitor
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis backs both the quota counters and the definitions mirror.
	// Fail fast if unavailable.
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	reg := registry.New()
	store := redisstore.NewStore(redisClient)

	// Warm the registry from the mirror so a broken record file at boot
	// does not leave the gateway empty.
	syncer := scheduler.NewRedisSyncer(store, reg, loggerClient)
	if err := syncer.Sync(context.Background()); err != nil {
		loggerClient.Warn("failed to warm registry from redis, will load from file",
			logger.Error(err))
	}

	reloadTrigger := make(chan struct{}, 1)
	healthCheckTrigger := make(chan struct{}, 1)

	reloader := scheduler.NewRegistryReloader(
		cfg.ServiceFile,
		cfg.DefaultTimeout,
		store,
		reg,
		loggerClient,
		cfg.ReloadInterval,
		reloadTrigger,
	)

	monitor := scheduler.NewHealthMonitor(
		reg,
		health.NewProber(),
		loggerClient,
		cfg.HealthCheckInterval,
		healthCheckTrigger,
	)

	policy, err := ratelimit.ParsePolicy(cfg.RateLimitFailPolicy)
	if err != nil {
		loggerClient.Errorf("Invalid rate limit configuration: %v", err)
		os.Exit(1)
	}
	limiter := ratelimit.New(ratelimit.NewRedisStore(redisClient), policy, loggerClient)

	engine := proxy.New(reg, loggerClient)

	d := deps.Deps{
		Logger:    loggerClient,
		StartTime: time.Now(),
		Version:   version.Version,
		Commit:    version.Commit,
		BuildDate: version.BuildDate,
		GoVersion: version.GoVersion,
		TimeNow:   time.Now,

		GatewayPrefix: cfg.GatewayPrefix,
		Registry:      reg,
		Proxy:         engine,
		Monitor:       monitor,
		Limiter:       limiter,

		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateWindow:         time.Minute,

		AllowedHosts:       cfg.AllowedHosts,
		AllowedCIDRS:       cfg.AllowedCIDRS,
		TrustProxy:         cfg.TrustProxy,
		ReloadTrigger:      reloadTrigger,
		HealthCheckTrigger: healthCheckTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		reloader:    reloader,
		monitor:     monitor,
	}
}

func (a *App) Run() error {
	a.logger.Infof("Starting Bifrost %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Loads service definitions and starts the periodic refresh.
	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start registry reloader: %w", err)
	}
	a.logger.Info("registry reloader started",
		logger.Duration("interval", a.cfg.ReloadInterval))

	a.monitor.Start(ctx)
	a.logger.Info("health monitor started",
		logger.Duration("interval", a.cfg.HealthCheckInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reloader.Stop()
	a.monitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("Redis closed cleanly")
		}
	}

	a.logger.Info("Bifrost stopped cleanly")
	return nil
}
