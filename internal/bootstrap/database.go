package bootstrap

import (
	"fmt"
	"log"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/config"
	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/store"
)

// initializeDatabase creates and migrates the installation store
func initializeDatabase(cfg *config.Config) (*store.Store, error) {
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Printf("Database initialized (driver: %s)", cfg.DatabaseDriver)
	return db, nil
}
