package database

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/inkfleet/inkfleet/internal/logging"
)

// RunMigrations runs any pending database migrations using gormigrate.
func RunMigrations() error {
	logging.InfoWithComponent(logging.ComponentDatabase, "Running database migrations")

	m := gormigrate.New(DB, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202508010000_add_playlist_cursor_to_devices",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasColumn(&Device{}, "playlist_cursor") {
					return nil
				}
				if err := tx.Exec("ALTER TABLE devices ADD COLUMN playlist_cursor INTEGER DEFAULT 0").Error; err != nil {
					return fmt.Errorf("failed to add playlist_cursor column: %w", err)
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				// SQLite doesn't support dropping columns easily, so we leave it
				return nil
			},
		},
		{
			ID: "202508010001_add_source_to_screens",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasColumn(&Screen{}, "source") {
					return nil
				}
				if err := tx.Exec("ALTER TABLE screens ADD COLUMN source VARCHAR(20) DEFAULT 'pushed'").Error; err != nil {
					return fmt.Errorf("failed to add source column: %w", err)
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return nil
			},
		},
	})

	// Set initial schema if this is a fresh database
	m.InitSchema(func(tx *gorm.DB) error {
		for _, model := range GetAllModels() {
			if err := tx.AutoMigrate(model); err != nil {
				return fmt.Errorf("failed to migrate %T: %w", model, err)
			}
		}
		return nil
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate picks up any column additions on existing schemas
	for _, model := range GetAllModels() {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to auto-migrate %T: %w", model, err)
		}
	}

	logging.InfoWithComponent(logging.ComponentDatabase, "Migrations completed")
	return nil
}
