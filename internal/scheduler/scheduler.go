// Package scheduler runs the background refresh sweep that keeps every
// installation's access token alive ahead of its expiry.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/config"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/metrics"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/models"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/provider"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/store"
)

// SweepStats summarizes one pass over the installation table
type SweepStats struct {
	Scanned   int
	Skipped   int
	Refreshed int
	Flagged   int
	Transient int
}

// Scheduler periodically refreshes access tokens that expire within the
// safety window. One failing installation never blocks the rest of the
// sweep.
type Scheduler struct {
	store    *store.Store
	provider *provider.Client
	metrics  metrics.Recorder
	window   time.Duration
	interval time.Duration
}

func New(
	cfg *config.Config,
	st *store.Store,
	pc *provider.Client,
	recorder metrics.Recorder,
) *Scheduler {
	return &Scheduler{
		store:    st,
		provider: pc,
		metrics:  recorder,
		window:   cfg.RefreshSafetyWindow,
		interval: cfg.SweepInterval,
	}
}

// Run sweeps immediately, then on every tick until ctx is cancelled. It
// is shaped to run as a graceful-manager job.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("[scheduler] refresh sweep every %s, safety window %s", s.interval, s.window)

	s.runSweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[scheduler] stopping refresh sweep")
			return nil
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *Scheduler) runSweep(ctx context.Context) {
	start := time.Now()
	stats, err := s.Sweep(ctx)
	if err != nil {
		log.Printf("[scheduler] sweep failed: %v", err)
		return
	}
	s.metrics.RecordSweep(time.Since(start))
	log.Printf("[scheduler] sweep done in %s: scanned=%d refreshed=%d flagged=%d transient=%d skipped=%d",
		time.Since(start).Round(time.Millisecond),
		stats.Scanned, stats.Refreshed, stats.Flagged, stats.Transient, stats.Skipped)
}

// Sweep refreshes every installation whose token is due. Terminal refresh
// failures flag the record for re-authorization; transient ones are left
// for the next sweep.
func (s *Scheduler) Sweep(ctx context.Context) (*SweepStats, error) {
	installations, err := s.store.List()
	if err != nil {
		return nil, err
	}

	stats := &SweepStats{Scanned: len(installations)}
	for i := range installations {
		inst := &installations[i]

		if inst.NeedsReauthorization || !inst.RefreshDue(s.window) {
			stats.Skipped++
			continue
		}

		if err := s.refreshOne(ctx, inst); err != nil {
			if provider.IsTerminal(err) {
				stats.Flagged++
				s.flagReauthorization(inst.ID, err)
			} else {
				stats.Transient++
				s.metrics.RecordRefresh(metrics.RefreshResultTransient)
				log.Printf("[scheduler] transient refresh failure for %s, will retry next sweep: %v",
					inst.ID, err)
			}
			continue
		}
		stats.Refreshed++
	}

	return stats, nil
}

func (s *Scheduler) refreshOne(ctx context.Context, inst *models.Installation) error {
	result, err := s.provider.Refresh(ctx, inst.RefreshToken)
	if err != nil {
		return err
	}

	_, err = s.store.Update(inst.ID, func(rec *models.Installation) error {
		rec.AccessToken = result.AccessToken
		rec.ExpiresAt = result.ExpiresAt
		// The provider may rotate the refresh token or return none at all
		if result.RefreshToken != "" {
			rec.RefreshToken = result.RefreshToken
		}
		if result.LocationID != "" && rec.LocationID == "" {
			rec.LocationID = result.LocationID
		}
		if result.Scope != "" {
			rec.Scopes = result.Scope
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordRefresh(metrics.RefreshResultSuccess)
	return nil
}

func (s *Scheduler) flagReauthorization(id string, cause error) {
	s.metrics.RecordRefresh(metrics.RefreshResultTerminal)
	log.Printf("[scheduler] refresh token rejected for %s, flagging for re-authorization: %v",
		id, cause)

	if _, err := s.store.Update(id, func(rec *models.Installation) error {
		rec.NeedsReauthorization = true
		return nil
	}); err != nil {
		log.Printf("[scheduler] failed to flag %s: %v", id, err)
	}
}
