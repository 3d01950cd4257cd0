package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Rate limit store type constants
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Metrics cache type constants
const (
	MetricsCacheTypeMemory = "memory"
	MetricsCacheTypeRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Session settings (used for install-flow state correlation)
	SessionSecret string
	SessionMaxAge int // seconds

	// HighLevel marketplace app credentials
	ClientID     string
	ClientSecret string

	// Provider endpoints
	TokenURL         string // authorization_code and refresh_token grants
	AuthorizeURL     string // marketplace "choose location" install page
	LocationTokenURL string // Company -> Location token conversion
	RedirectURL      string // OAuth callback registered with the marketplace
	Scopes           []string

	// Post-callback redirect targets (external pages)
	SuccessRedirectURL string
	ErrorRedirectURL   string

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Token lifecycle
	RefreshSafetyWindow       time.Duration // refresh when expiry is this close
	SweepInterval             time.Duration // background sweep cadence
	LocationTokenExpiryBuffer time.Duration // cached Location tokens die early by this much

	// Provider HTTP client
	ProviderTimeout            time.Duration
	ProviderInsecureSkipVerify bool
	ProviderMaxRetries         int
	ProviderRetryDelay         time.Duration
	ProviderMaxRetryDelay      time.Duration

	// Metrics
	MetricsEnabled             bool
	MetricsGaugeUpdateEnabled  bool
	MetricsGaugeUpdateInterval time.Duration
	MetricsCacheType           string // "memory" or "redis"
	CacheInitTimeout           time.Duration

	// Redis (metrics cache and/or rate limit store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Rate limiting
	RateLimitEnabled           bool
	RateLimitRequestsPerMinute int
	RateLimitStoreType         string // "memory" or "redis"
	RateLimitCleanupInterval   time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", getEnv("DATABASE_PATH", "installations.db"))
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnvBool("PRODUCTION", false),

		SessionSecret: getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionMaxAge: getEnvInt("SESSION_MAX_AGE", 600),

		ClientID:     getEnv("GHL_CLIENT_ID", ""),
		ClientSecret: getEnv("GHL_CLIENT_SECRET", ""),

		TokenURL: getEnv(
			"GHL_TOKEN_URL",
			"https://services.leadconnectorhq.com/oauth/token",
		),
		AuthorizeURL: getEnv(
			"GHL_AUTHORIZE_URL",
			"https://marketplace.gohighlevel.com/oauth/chooselocation",
		),
		LocationTokenURL: getEnv(
			"GHL_LOCATION_TOKEN_URL",
			"https://services.leadconnectorhq.com/oauth/locationToken",
		),
		RedirectURL: getEnv("GHL_REDIRECT_URL", ""),
		Scopes: getEnvSlice("GHL_SCOPES", []string{
			"products.write", "medias.write", "oauth.write", "oauth.readonly",
		}),

		SuccessRedirectURL: getEnv("SUCCESS_REDIRECT_URL", ""),
		ErrorRedirectURL:   getEnv("ERROR_REDIRECT_URL", ""),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		RefreshSafetyWindow:       getEnvDuration("REFRESH_SAFETY_WINDOW", 2*time.Hour),
		SweepInterval:             getEnvDuration("REFRESH_SWEEP_INTERVAL", 1*time.Hour),
		LocationTokenExpiryBuffer: getEnvDuration("LOCATION_TOKEN_EXPIRY_BUFFER", 5*time.Minute),

		ProviderTimeout:            getEnvDuration("PROVIDER_TIMEOUT", 15*time.Second),
		ProviderInsecureSkipVerify: getEnvBool("PROVIDER_INSECURE_SKIP_VERIFY", false),
		ProviderMaxRetries:         getEnvInt("PROVIDER_MAX_RETRIES", 3),
		ProviderRetryDelay:         getEnvDuration("PROVIDER_RETRY_DELAY", 1*time.Second),
		ProviderMaxRetryDelay:      getEnvDuration("PROVIDER_MAX_RETRY_DELAY", 10*time.Second),

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", false),
		MetricsGaugeUpdateEnabled:  getEnvBool("METRICS_GAUGE_UPDATE_ENABLED", true),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", 1*time.Minute),
		MetricsCacheType:           getEnv("METRICS_CACHE_TYPE", MetricsCacheTypeMemory),
		CacheInitTimeout:           getEnvDuration("CACHE_INIT_TIMEOUT", 5*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitEnabled:           getEnvBool("RATE_LIMIT_ENABLED", false),
		RateLimitRequestsPerMinute: getEnvInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
		RateLimitStoreType:         getEnv("RATE_LIMIT_STORE", RateLimitStoreMemory),
		RateLimitCleanupInterval:   getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var parts []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
