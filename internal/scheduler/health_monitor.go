package scheduler

import (
	"context"
	"sync"
	"time"

	"bifrost/internal/domain"
	"bifrost/internal/health"
	"bifrost/internal/logger"
	"bifrost/internal/registry"
)

// HealthMonitor keeps the registry's health state current by probing every
// active service on a fixed interval.
//
// Probes within a cycle run concurrently, each bounded by its service's own
// timeout, so one slow backend never delays the others. Probe failures are
// recorded as unhealthy and otherwise swallowed; the loop never aborts.
type HealthMonitor struct {
	registry      *registry.Registry
	prober        *health.Prober
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(
	reg *registry.Registry,
	prober *health.Prober,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *HealthMonitor {
	return &HealthMonitor{
		registry:      reg,
		prober:        prober,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic probing process. The first cycle runs in the
// background immediately so fresh entries leave unknown without waiting a
// full interval.
func (hm *HealthMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(hm.interval)
	go func() {
		defer ticker.Stop()
		hm.ProbeAll(ctx)
		for {
			select {
			case <-ticker.C:
				hm.ProbeAll(ctx)
			case <-hm.manualTrigger:
				hm.logger.Info("manual health check triggered")
				hm.ProbeAll(ctx)
			case <-hm.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the monitor loop.
func (hm *HealthMonitor) Stop() {
	close(hm.stopCh)
}

// ProbeAll runs one probe cycle over the current active snapshot and waits
// for every probe to finish. Safe to call concurrently with the scheduled
// loop; health updates are idempotent.
func (hm *HealthMonitor) ProbeAll(ctx context.Context) {
	entries := hm.registry.ListActive()
	if len(entries) == 0 {
		return
	}

	start := time.Now()
	var wg sync.WaitGroup
	for _, entry := range entries {
		wg.Add(1)
		go func(def domain.ServiceDefinition) {
			defer wg.Done()
			hm.probeOne(ctx, def)
		}(entry.Definition)
	}
	wg.Wait()

	hm.logger.Debug("health probe cycle completed",
		logger.Int("services", len(entries)),
		logger.Duration("duration", time.Since(start)))
}

// ProbeOne forces an immediate probe of a single service and returns its
// resulting status. Used by the administrative health endpoints.
func (hm *HealthMonitor) ProbeOne(ctx context.Context, name string) (domain.HealthStatus, error) {
	entry, err := hm.registry.Lookup(name)
	if err != nil {
		return "", err
	}
	return hm.probeOne(ctx, entry.Definition), nil
}

func (hm *HealthMonitor) probeOne(ctx context.Context, def domain.ServiceDefinition) domain.HealthStatus {
	hm.registry.UpdateHealth(def.Name, domain.HealthChecking, time.Time{})

	status := domain.HealthHealthy
	if err := hm.prober.Probe(ctx, def); err != nil {
		status = domain.HealthUnhealthy
		hm.logger.Warn("health probe failed",
			logger.String("service", def.Name),
			logger.String("url", def.HealthURL()),
			logger.Error(err))
	}

	// The entry may have been removed by a reload mid-probe; the stale
	// result is simply dropped.
	hm.registry.UpdateHealth(def.Name, status, time.Now())
	return status
}
