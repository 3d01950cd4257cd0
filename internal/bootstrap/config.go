package bootstrap

import (
	"errors"
	"fmt"
	"log"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/config"
)

// validateConfiguration validates all configuration settings
func validateConfiguration(cfg *config.Config) {
	if err := validateCredentials(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := validateDatabaseConfig(cfg); err != nil {
		log.Fatalf("Invalid database configuration: %v", err)
	}
	if err := validateLifecycleConfig(cfg); err != nil {
		log.Fatalf("Invalid token lifecycle configuration: %v", err)
	}
}

func validateCredentials(cfg *config.Config) error {
	if cfg.ClientID == "" {
		return errors.New("GHL_CLIENT_ID is required")
	}
	if cfg.ClientSecret == "" {
		return errors.New("GHL_CLIENT_SECRET is required")
	}
	if cfg.RedirectURL == "" {
		return errors.New("GHL_REDIRECT_URL is required (the callback registered with the marketplace)")
	}
	return nil
}

func validateDatabaseConfig(cfg *config.Config) error {
	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be: sqlite, postgres)", cfg.DatabaseDriver)
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is required")
	}
	return nil
}

func validateLifecycleConfig(cfg *config.Config) error {
	if cfg.RefreshSafetyWindow <= 0 {
		return errors.New("REFRESH_SAFETY_WINDOW must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("REFRESH_SWEEP_INTERVAL must be positive")
	}
	if cfg.LocationTokenExpiryBuffer < 0 {
		return errors.New("LOCATION_TOKEN_EXPIRY_BUFFER must not be negative")
	}
	return nil
}
