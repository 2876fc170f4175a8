package scheduler

import (
	"context"
	"fmt"

	"bifrost/internal/logger"
	"bifrost/internal/registry"
	redisstore "bifrost/internal/store/redis"
)

// RedisSyncer warms the registry from the redis definitions mirror on
// startup, so a replica whose record file is missing or broken can still
// serve the last mirrored catalog.
type RedisSyncer struct {
	store    *redisstore.Store
	registry *registry.Registry
	logger   logger.Logger
}

// NewRedisSyncer creates a new redis syncer
func NewRedisSyncer(
	store *redisstore.Store,
	reg *registry.Registry,
	log logger.Logger,
) *RedisSyncer {
	return &RedisSyncer{
		store:    store,
		registry: reg,
		logger:   log,
	}
}

// Sync loads definitions from redis and installs them as the registry
// snapshot. An empty mirror is not an error; the registry just stays
// unloaded.
func (rs *RedisSyncer) Sync(ctx context.Context) error {
	defs, err := rs.store.GetAllDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to read definitions mirror: %w", err)
	}

	if len(defs) == 0 {
		rs.logger.Info("no definitions found in redis mirror")
		return nil
	}

	rs.registry.Replace(defs)
	rs.logger.Info("registry warmed from redis mirror",
		logger.Int("count", len(defs)))

	return nil
}
