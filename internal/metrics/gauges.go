package metrics

import (
	"context"
	"time"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/cache"
)

// InstallationCounter is the slice of the store the gauge updater needs
type InstallationCounter interface {
	CountInstallations(needsReauth bool) (int64, error)
}

// GaugeSource reads installation counts through a cache so the periodic
// gauge update does not hammer the database, especially with a shared
// redis cache across instances.
type GaugeSource struct {
	counter InstallationCounter
	cache   cache.Cache[int64]
}

func NewGaugeSource(counter InstallationCounter, c cache.Cache[int64]) *GaugeSource {
	return &GaugeSource{counter: counter, cache: c}
}

// InstallationsCount returns the cached total installation count
func (g *GaugeSource) InstallationsCount(ctx context.Context, ttl time.Duration) (int64, error) {
	return cache.GetWithFetch(ctx, g.cache, "installations:total", ttl,
		func(ctx context.Context, key string) (int64, error) {
			return g.counter.CountInstallations(false)
		})
}

// NeedsReauthCount returns the cached count of flagged installations
func (g *GaugeSource) NeedsReauthCount(ctx context.Context, ttl time.Duration) (int64, error) {
	return cache.GetWithFetch(ctx, g.cache, "installations:needs_reauth", ttl,
		func(ctx context.Context, key string) (int64, error) {
			return g.counter.CountInstallations(true)
		})
}
