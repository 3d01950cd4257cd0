// Package bootstrap wires configuration, storage, provider clients,
// services, and the HTTP layer into a running application.
package bootstrap

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/cache"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/client"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/config"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/converter"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/handlers"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/metrics"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/provider"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/retry"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/scheduler"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/services"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/store"
)

// handlerSet groups the constructed HTTP handlers
type handlerSet struct {
	oauth *handlers.OAuthHandler
	token *handlers.TokenHandler
}

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                 *store.Store
	MetricsRecorder    metrics.Recorder
	MetricsCache       cache.Cache[int64]
	MetricsCacheCloser func() error
	ProviderHTTP       *retry.Client

	// Business layer
	TokenService *services.TokenService
	Converter    *converter.Converter
	Scheduler    *scheduler.Scheduler

	// HTTP
	Handlers handlerSet
	Router   *gin.Engine
	Server   *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	validateConfiguration(cfg)

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	app.initializeBusinessLayer()

	// Phase 4: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, cache, and the
// provider HTTP client
func (app *Application) initializeInfrastructure() error {
	var err error

	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	app.MetricsRecorder = initializeMetrics(app.Config)
	app.MetricsCache, app.MetricsCacheCloser, err = initializeMetricsCache(app.Config)
	if err != nil {
		return err
	}

	app.ProviderHTTP, err = client.CreateProviderClient(app.Config)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer sets up the token service, converter, and
// refresh scheduler around the shared provider client
func (app *Application) initializeBusinessLayer() {
	providerClient := provider.New(app.Config, app.ProviderHTTP)

	app.TokenService = services.NewTokenService(
		app.Config, app.DB, providerClient, app.MetricsRecorder)
	app.Converter = converter.New(
		app.Config, app.DB, app.ProviderHTTP, app.MetricsRecorder)
	app.Scheduler = scheduler.New(
		app.Config, app.DB, providerClient, app.MetricsRecorder)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	app.Handlers = handlerSet{
		oauth: handlers.NewOAuthHandler(app.Config, app.TokenService),
		token: handlers.NewTokenHandler(app.TokenService, app.Converter),
	}

	app.Router = setupRouter(app.Config, app.DB, app.Handlers, app.MetricsRecorder)
	app.Server = createHTTPServer(app.Config, app.Router)
}
