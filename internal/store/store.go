package store

import (
	"errors"
	"fmt"

	"github.com/EngageAutomations/ghl-api-backend-sub003/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store persists installation records, keyed by installation id.
// All mutation of an existing record must go through Update so that a
// concurrent refresh and conversion cannot clobber each other's fields.
type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; one connection avoids SQLITE_BUSY
	// under concurrent Update calls
	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.Installation{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Put inserts or overwrites an installation record
func (s *Store) Put(inst *models.Installation) error {
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(inst).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Get returns the installation or ErrNotFound
func (s *Store) Get(id string) (*models.Installation, error) {
	var inst models.Installation
	if err := s.db.Where("id = ?", id).First(&inst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &inst, nil
}

// List returns all installations ordered by creation time. The refresh
// sweep iterates this snapshot; records created mid-sweep are picked up on
// the next cycle.
func (s *Store) List() ([]models.Installation, error) {
	var insts []models.Installation
	if err := s.db.Order("created_at ASC").Find(&insts).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return insts, nil
}

// Update atomically reads the record, applies mutate, and writes it back
// inside a transaction with a row lock. Returns the mutated record.
func (s *Store) Update(
	id string,
	mutate func(inst *models.Installation) error,
) (*models.Installation, error) {
	var inst models.Installation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ?", id)
		// SQLite serializes writers on its own and rejects FOR UPDATE
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&inst).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}

		if err := mutate(&inst); err != nil {
			return err
		}

		if err := tx.Save(&inst).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// CountInstallations returns the total number of installations, optionally
// restricted to records flagged for re-authorization. Used by the metrics
// gauge update job.
func (s *Store) CountInstallations(needsReauth bool) (int64, error) {
	var count int64
	q := s.db.Model(&models.Installation{})
	if needsReauth {
		q = q.Where("needs_reauthorization = ?", true)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return count, nil
}

// Close releases the underlying database connections
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks database connectivity
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB exposes the underlying gorm handle for tests
func (s *Store) DB() *gorm.DB {
	return s.db
}
