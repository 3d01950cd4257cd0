package bootstrap

import (
	"log"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/config"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/metrics"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/middleware"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/store"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	h handlerSet,
	recorder metrics.Recorder,
) *gin.Engine {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Logger(), gin.Recovery())

	setupSessionMiddleware(r, cfg)

	r.GET("/health", createHealthCheckHandler(db))
	setupMetricsEndpoint(r, cfg)

	limiter := setupRateLimiting(cfg)

	// Install flow
	r.GET("/oauth/start", h.oauth.Start)
	r.GET("/oauth/callback", limiter, h.oauth.Callback)

	// Token access for downstream API backends
	r.GET("/token-access/:installationId", limiter, h.token.TokenAccess)
	r.GET("/location-token/:installationId", limiter, h.token.LocationToken)

	// Diagnostics
	r.GET("/installations", h.token.Installations)

	logServerStartup(cfg)
	return r
}

// setupSessionMiddleware configures the cookie session used for install
// flow state correlation
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("ghl_oauth", sessionStore))
}

// setupRateLimiting returns the rate limiting middleware for provider-
// facing endpoints, or a pass-through when disabled
func setupRateLimiting(cfg *config.Config) gin.HandlerFunc {
	if !cfg.RateLimitEnabled {
		return func(c *gin.Context) { c.Next() }
	}

	log.Printf("Rate limiting enabled (store: %s, %d req/min)",
		cfg.RateLimitStoreType, cfg.RateLimitRequestsPerMinute)

	limiter, err := middleware.NewRateLimiter(cfg)
	if err != nil {
		log.Fatalf("Failed to create rate limiter: %v", err)
	}
	return limiter
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	if !cfg.MetricsEnabled {
		log.Printf("Prometheus metrics disabled")
		return
	}
	log.Printf("Prometheus metrics enabled at /metrics")
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// createHealthCheckHandler creates the health check endpoint handler
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
		return
	}
	gin.SetMode(gin.DebugMode)
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("OAuth backend starting on %s", cfg.ServerAddr)
	log.Printf("Install flow entry: %s/oauth/start", cfg.BaseURL)
	log.Printf("Callback registered as: %s", cfg.RedirectURL)
}
