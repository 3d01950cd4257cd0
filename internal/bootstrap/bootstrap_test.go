package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/config"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/converter"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/handlers"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/metrics"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/provider"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/retry"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/services"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/store"
)

func TestValidateCredentials(t *testing.T) {
	valid := &config.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "https://app.example.com/oauth/callback",
	}
	assert.NoError(t, validateCredentials(valid))

	err := validateCredentials(&config.Config{ClientSecret: "s", RedirectURL: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHL_CLIENT_ID")

	err = validateCredentials(&config.Config{ClientID: "i", RedirectURL: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHL_CLIENT_SECRET")

	err = validateCredentials(&config.Config{ClientID: "i", ClientSecret: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHL_REDIRECT_URL")
}

func TestValidateDatabaseConfig(t *testing.T) {
	assert.NoError(t, validateDatabaseConfig(&config.Config{
		DatabaseDriver: "sqlite",
		DatabaseDSN:    "installations.db",
	}))

	err := validateDatabaseConfig(&config.Config{DatabaseDriver: "mysql", DatabaseDSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid DATABASE_DRIVER")

	err = validateDatabaseConfig(&config.Config{DatabaseDriver: "postgres"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_DSN")
}

func TestValidateLifecycleConfig(t *testing.T) {
	assert.NoError(t, validateLifecycleConfig(&config.Config{
		RefreshSafetyWindow: 2 * time.Hour,
		SweepInterval:       time.Hour,
	}))

	err := validateLifecycleConfig(&config.Config{SweepInterval: time.Hour})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFRESH_SAFETY_WINDOW")
}

func TestInitializeMetricsCacheDisabled(t *testing.T) {
	c, closer, err := initializeMetricsCache(&config.Config{
		MetricsEnabled:            false,
		MetricsGaugeUpdateEnabled: true,
	})
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Nil(t, closer)
}

func TestInitializeMetricsCacheMemory(t *testing.T) {
	c, closer, err := initializeMetricsCache(&config.Config{
		MetricsEnabled:            true,
		MetricsGaugeUpdateEnabled: true,
		MetricsCacheType:          config.MetricsCacheTypeMemory,
		CacheInitTimeout:          time.Second,
	})
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NotNil(t, closer)
	assert.NoError(t, closer())
}

func TestSetupRouterHealthEndpoint(t *testing.T) {
	db, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		ClientID:            "id",
		ClientSecret:        "secret",
		RedirectURL:         "https://app.example.com/oauth/callback",
		SessionSecret:       "test-secret",
		RefreshSafetyWindow: 2 * time.Hour,
	}
	rc := retry.NewClient(retry.WithMaxRetries(0))
	recorder := metrics.NewNoopMetrics()
	tokens := services.NewTokenService(cfg, db, provider.New(cfg, rc), recorder)

	r := setupRouter(cfg, db, handlerSet{
		oauth: handlers.NewOAuthHandler(cfg, tokens),
		token: handlers.NewTokenHandler(tokens, converter.New(cfg, db, rc, recorder)),
	}, recorder)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
