// Package store provides the tiered cache: an in-memory map in front of the
// SQLite-backed record stores. A missing or failing disk tier degrades to a
// cache miss, never to a hard failure for readers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tvdeck/tvdeck/internal/database"
	"github.com/tvdeck/tvdeck/internal/database/migrations"
	"github.com/tvdeck/tvdeck/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is a cached value with its write time.
type Entry struct {
	Value     json.RawMessage
	Timestamp int64
}

// Store is the tiered cache over the five record stores.
type Store struct {
	db     *database.DB
	logger *slog.Logger

	mu  sync.RWMutex
	mem map[string]map[string]Entry
}

// New creates a Store. A nil db is allowed; the disk tier then reports
// models.ErrStorageUnavailable and everything runs memory-only.
func New(db *database.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		logger: logger.With("component", "store"),
		mem:    make(map[string]map[string]Entry),
	}
}

// Open applies pending schema migrations.
func (s *Store) Open(ctx context.Context) error {
	if s.db == nil {
		return models.ErrStorageUnavailable
	}

	migrator := migrations.NewMigrator(s.db.DB, s.logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("%w: migrating schema: %v", models.ErrStorage, err)
	}
	return nil
}

// Get returns the cached entry for (store, key). The memory tier is
// consulted first; a disk hit is promoted into memory. The second return is
// false on a miss.
func (s *Store) Get(ctx context.Context, store, key string) (Entry, bool, error) {
	s.mu.RLock()
	if byKey, ok := s.mem[store]; ok {
		if entry, ok := byKey[key]; ok {
			s.mu.RUnlock()
			return entry, true, nil
		}
	}
	s.mu.RUnlock()

	if s.db == nil {
		return Entry{}, false, models.ErrStorageUnavailable
	}

	var record models.CacheRecord
	err := s.db.WithContext(ctx).
		Where("store = ? AND key = ?", store, key).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: reading %s/%s: %v", models.ErrStorage, store, key, err)
	}

	entry := Entry{Value: json.RawMessage(record.Value), Timestamp: record.Timestamp}
	s.promote(store, key, entry)
	return entry, true, nil
}

// GetValue unmarshals the cached entry for (store, key) into target.
func (s *Store) GetValue(ctx context.Context, store, key string, target any) (bool, error) {
	entry, ok, err := s.Get(ctx, store, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(entry.Value, target); err != nil {
		return false, fmt.Errorf("%w: decoding %s/%s: %v", models.ErrStorage, store, key, err)
	}
	return true, nil
}

// Put caches value under (store, key) in both tiers. The memory tier is
// written even when the disk tier fails, so a flaky disk still leaves the
// session consistent.
func (s *Store) Put(ctx context.Context, store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", store, key, err)
	}

	now := time.Now().UnixMilli()
	s.promote(store, key, Entry{Value: data, Timestamp: now})

	if s.db == nil {
		return models.ErrStorageUnavailable
	}

	record := models.CacheRecord{
		Store:     store,
		Key:       key,
		Value:     string(data),
		Timestamp: now,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "timestamp"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("%w: writing %s/%s: %v", models.ErrStorage, store, key, err)
	}
	return nil
}

// Delete removes (store, key) from both tiers.
func (s *Store) Delete(ctx context.Context, store, key string) error {
	s.mu.Lock()
	if byKey, ok := s.mem[store]; ok {
		delete(byKey, key)
	}
	s.mu.Unlock()

	if s.db == nil {
		return models.ErrStorageUnavailable
	}

	err := s.db.WithContext(ctx).
		Where("store = ? AND key = ?", store, key).
		Delete(&models.CacheRecord{}).Error
	if err != nil {
		return fmt.Errorf("%w: deleting %s/%s: %v", models.ErrStorage, store, key, err)
	}
	return nil
}

// ClearAll removes every entry in every store, atomically on disk.
// Preferences are a separate surface and are not touched.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	s.mem = make(map[string]map[string]Entry)
	s.mu.Unlock()

	if s.db == nil {
		return models.ErrStorageUnavailable
	}

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Where("1 = 1").Delete(&models.CacheRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("%w: clearing stores: %v", models.ErrStorage, err)
	}

	s.logger.Info("all cache stores cleared")
	return nil
}

// ClearCredentialBound removes categories, streams, userInfo, and epg while
// preserving favorites. Used when the user re-authenticates with different
// credentials.
func (s *Store) ClearCredentialBound(ctx context.Context) error {
	s.mu.Lock()
	for _, store := range models.CredentialBoundStores {
		delete(s.mem, store)
	}
	s.mu.Unlock()

	if s.db == nil {
		return models.ErrStorageUnavailable
	}

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Where("store IN ?", models.CredentialBoundStores).
			Delete(&models.CacheRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("%w: clearing credential-bound stores: %v", models.ErrStorage, err)
	}

	s.logger.Info("credential-bound cache stores cleared")
	return nil
}

func (s *Store) promote(store, key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKey, ok := s.mem[store]
	if !ok {
		byKey = make(map[string]Entry)
		s.mem[store] = byKey
	}
	byKey[key] = entry
}
