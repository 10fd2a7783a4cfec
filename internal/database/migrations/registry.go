package migrations

import (
	"github.com/tvdeck/tvdeck/internal/models"
	"gorm.io/gorm"
)

// SchemaVersion is the version an up-to-date database reports.
const SchemaVersion = "003"

// AllMigrations returns all registered migrations in order:
//   - 001: cache record stores (categories, streams, userInfo)
//   - 002: preferences table and favorites store
//   - 003: EPG store index for guide lookups
func AllMigrations() []Migration {
	return []Migration{
		migration001CacheStores(),
		migration002Preferences(),
		migration003EPGStore(),
	}
}

// migration001CacheStores creates the cache record table. Store separation
// is by the Store column rather than by table, so later store additions are
// data-level and need no DDL.
func migration001CacheStores() Migration {
	return Migration{
		Version:     "001",
		Description: "Create cache record stores",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.CacheRecord{})
		},
	}
}

// migration002Preferences creates the preferences table.
func migration002Preferences() Migration {
	return Migration{
		Version:     "002",
		Description: "Create preferences table",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Preference{})
		},
	}
}

// migration003EPGStore adds an index on store name for guide scans. The epg
// store itself needs no DDL; AutoMigrate here keeps the step idempotent for
// databases created before the index existed.
func migration003EPGStore() Migration {
	return Migration{
		Version:     "003",
		Description: "Index cache records by store",
		Up: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&models.CacheRecord{}); err != nil {
				return err
			}
			if tx.Migrator().HasIndex(&models.CacheRecord{}, "idx_cache_records_store") {
				return nil
			}
			return tx.Exec("CREATE INDEX idx_cache_records_store ON cache_records(store)").Error
		},
	}
}
