package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"notifications/internal/domain"

	"github.com/google/uuid"
)

const (
	cacheProbeName = "cache"
	sentinelPrefix = "health_check_test:"
	sentinelValue  = "ok"
	sentinelTTL    = 30 * time.Second
)

// Probe round-trips a sentinel value through the cache. Each run uses its own
// key so concurrent checks never observe each other's writes.
type Probe struct {
	cache  domain.Cache
	logger *slog.Logger
	newKey func() string
}

func NewProbe(cache domain.Cache, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{
		cache:  cache,
		logger: logger,
		newKey: func() string { return sentinelPrefix + uuid.NewString() },
	}
}

func (p *Probe) Name() string { return cacheProbeName }

func (p *Probe) Check(ctx context.Context) domain.ProbeResult {
	if p.cache == nil {
		return unhealthy(fmt.Sprintf("Cache connection failed: cache %v", domain.ErrNotConfigured))
	}
	key := p.newKey()
	if err := p.cache.Set(ctx, key, sentinelValue, sentinelTTL); err != nil {
		return unhealthy(fmt.Sprintf("Cache connection failed: %v", err))
	}
	defer p.cleanup(key)

	value, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		return unhealthy(fmt.Sprintf("Cache connection failed: %v", err))
	}
	if !ok || value != sentinelValue {
		p.logger.Warn("cache returned unexpected sentinel value",
			"event", "cache_probe_mismatch",
			"module", "internal/infra/cache",
			"layer", "infra",
			"error", fmt.Errorf("%w: key %s", domain.ErrProbeFailure, key).Error(),
		)
		return unhealthy("Cache set/get test failed")
	}
	return domain.ProbeResult{Status: domain.StatusHealthy, Message: "Cache connection successful"}
}

// cleanup ignores the probe deadline; the sentinel TTL bounds a failed delete.
func (p *Probe) cleanup(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.cache.Delete(ctx, key); err != nil {
		p.logger.Warn("failed to delete cache sentinel",
			"event", "cache_probe_cleanup_failed",
			"module", "internal/infra/cache",
			"layer", "infra",
			"key", key,
			"error", err.Error(),
		)
	}
}

func unhealthy(message string) domain.ProbeResult {
	return domain.ProbeResult{Status: domain.StatusUnhealthy, Message: message}
}
