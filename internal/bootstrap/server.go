package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/appleboy/graceful"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/cache"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/config"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/metrics"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/scheduler"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/store"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// startWithGracefulShutdown runs the server, the refresh scheduler, and
// the gauge update job until shutdown
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addSchedulerJob(m, app.Scheduler)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder, app.MetricsCache)
	addCacheCleanupJob(m, app.MetricsCacheCloser)
	addDatabaseShutdownJob(m, app.DB)

	<-m.Done()
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addSchedulerJob runs the refresh sweep loop as a managed job
func addSchedulerJob(m *graceful.Manager, s *scheduler.Scheduler) {
	m.AddRunningJob(func(ctx context.Context) error {
		return s.Run(ctx)
	})
}

// addMetricsGaugeUpdateJob adds the periodic installation gauge update job
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	recorder metrics.Recorder,
	metricsCache cache.Cache[int64],
) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.MetricsGaugeUpdateInterval)
		defer ticker.Stop()

		source := metrics.NewGaugeSource(db, metricsCache)

		updateGauges(ctx, source, recorder, cfg.MetricsGaugeUpdateInterval)
		for {
			select {
			case <-ticker.C:
				updateGauges(ctx, source, recorder, cfg.MetricsGaugeUpdateInterval)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// updateGauges refreshes the installation count gauges. The cache TTL
// matches the update interval so one instance's query serves all.
func updateGauges(
	ctx context.Context,
	source *metrics.GaugeSource,
	recorder metrics.Recorder,
	cacheTTL time.Duration,
) {
	total, err := source.InstallationsCount(ctx, cacheTTL)
	if err != nil {
		log.Printf("Failed to count installations: %v", err)
		return
	}
	needsReauth, err := source.NeedsReauthCount(ctx, cacheTTL)
	if err != nil {
		log.Printf("Failed to count flagged installations: %v", err)
		return
	}
	recorder.SetInstallationsCount(int(total), int(needsReauth))
}

// addCacheCleanupJob adds cache cleanup on shutdown
func addCacheCleanupJob(m *graceful.Manager, closer func() error) {
	if closer == nil {
		return
	}
	m.AddShutdownJob(func() error {
		if err := closer(); err != nil {
			log.Printf("Error closing metrics cache: %v", err)
		} else {
			log.Println("Metrics cache closed")
		}
		return nil
	})
}

// addDatabaseShutdownJob closes the store after the server drains
func addDatabaseShutdownJob(m *graceful.Manager, db *store.Store) {
	m.AddShutdownJob(func() error {
		log.Println("Closing database...")
		return db.Close()
	})
}
