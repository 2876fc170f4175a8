package scheduler

import (
	"context"
	"fmt"
	"time"

	"bifrost/internal/domain"
	"bifrost/internal/logger"
	"bifrost/internal/registry"
	"bifrost/internal/sources/servicefile"
	redisstore "bifrost/internal/store/redis"
)

// RegistryReloader handles periodic reloading of service definitions from
// the record store into the registry.
type RegistryReloader struct {
	loader        *servicefile.Loader
	mapper        *servicefile.Mapper
	store         *redisstore.Store
	registry      *registry.Registry
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewRegistryReloader creates a new registry reloader
func NewRegistryReloader(
	serviceFile string,
	defaultTimeout time.Duration,
	store *redisstore.Store,
	reg *registry.Registry,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *RegistryReloader {
	return &RegistryReloader{
		loader:        servicefile.NewLoader(serviceFile),
		mapper:        servicefile.NewMapper(defaultTimeout),
		store:         store,
		registry:      reg,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the registry once, then begins the periodic reload process.
// Startup fails only when the record file is unusable AND the registry
// could not be warmed from the redis mirror beforehand.
func (rr *RegistryReloader) Start(ctx context.Context) error {
	if err := rr.Reload(ctx); err != nil {
		if !rr.registry.Loaded() {
			return fmt.Errorf("initial reload failed: %w", err)
		}
		rr.logger.Warn("initial reload failed, serving definitions from redis mirror",
			logger.Error(err))
	}

	ticker := time.NewTicker(rr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rr.Reload(ctx); err != nil {
					rr.logger.Error("failed to reload services",
						logger.Error(err))
				}
			case <-rr.manualTrigger:
				rr.logger.Info("manual reload triggered")
				if err := rr.Reload(ctx); err != nil {
					rr.logger.Error("failed to reload services",
						logger.Error(err))
				}
			case <-rr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader.
func (rr *RegistryReloader) Stop() {
	close(rr.stopCh)
}

// Reload reads the full definition set and atomically replaces the registry
// snapshot. On any failure the registry keeps its last-known-good snapshot
// and in-flight requests are unaffected.
func (rr *RegistryReloader) Reload(ctx context.Context) error {
	config, err := rr.loader.Load()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReloadFailure, err)
	}

	defs, err := rr.mapper.MapServices(config)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrReloadFailure, err)
	}

	rr.registry.Replace(defs)
	rr.logger.Info("registry reloaded",
		logger.Int("count", len(defs)))

	// Mirror to redis (best effort) so a replica can boot without the file.
	if rr.store != nil {
		if err := rr.store.SaveDefinitionsMany(ctx, defs); err != nil {
			rr.logger.Warn("failed to mirror definitions to redis",
				logger.Error(err))
		}
	}

	return nil
}
