package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tvdeck/tvdeck/internal/database"
	"github.com/tvdeck/tvdeck/internal/models"
	"gorm.io/gorm/clause"
)

// Preferences is the synchronous key/value surface for small settings:
// credentials, toggles, the display timezone, and the favorites fallback
// arrays. All values live in memory after Load; writes go through to the
// preferences table but a disk failure only logs.
type Preferences struct {
	db     *database.DB
	logger *slog.Logger

	mu     sync.RWMutex
	values map[string]string
}

// NewPreferences creates a Preferences surface.
func NewPreferences(db *database.DB, logger *slog.Logger) *Preferences {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preferences{
		db:     db,
		logger: logger.With("component", "preferences"),
		values: make(map[string]string),
	}
}

// Load reads all persisted preferences into memory. Call once at startup,
// after migrations.
func (p *Preferences) Load(ctx context.Context) error {
	if p.db == nil {
		return models.ErrStorageUnavailable
	}

	var rows []models.Preference
	if err := p.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, row := range rows {
		p.values[row.Key] = row.Value
	}
	return nil
}

// Get returns the preference value and whether it is set.
func (p *Preferences) Get(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// GetDefault returns the preference value, or def when unset.
func (p *Preferences) GetDefault(key, def string) string {
	if v, ok := p.Get(key); ok {
		return v
	}
	return def
}

// GetBool returns true when the preference is the string "true".
func (p *Preferences) GetBool(key string) bool {
	v, _ := p.Get(key)
	return v == "true"
}

// Set stores a preference. The in-memory value is authoritative; the
// write-through failure path only logs.
func (p *Preferences) Set(key, value string) {
	p.mu.Lock()
	p.values[key] = value
	p.mu.Unlock()

	p.persist(key, value)
}

// SetBool stores a boolean preference as "true"/"false".
func (p *Preferences) SetBool(key string, value bool) {
	if value {
		p.Set(key, "true")
	} else {
		p.Set(key, "false")
	}
}

// Delete removes a preference.
func (p *Preferences) Delete(key string) {
	p.mu.Lock()
	delete(p.values, key)
	p.mu.Unlock()

	if p.db == nil {
		return
	}
	if err := p.db.Where("key = ?", key).Delete(&models.Preference{}).Error; err != nil {
		p.logger.Warn("deleting preference", "key", key, "error", err)
	}
}

// Credentials returns the stored provider credentials, if complete.
func (p *Preferences) Credentials() (models.Credentials, bool) {
	raw, ok := p.Get(models.PrefCredentials)
	if !ok || raw == "" {
		return models.Credentials{}, false
	}

	var creds models.Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		p.logger.Warn("stored credentials unreadable", "error", err)
		return models.Credentials{}, false
	}
	if !creds.IsComplete() {
		return models.Credentials{}, false
	}
	return creds, true
}

// SetCredentials stores the provider credentials.
func (p *Preferences) SetCredentials(creds models.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	p.Set(models.PrefCredentials, string(data))
	return nil
}

// ClearCredentials removes the stored credentials.
func (p *Preferences) ClearCredentials() {
	p.Delete(models.PrefCredentials)
}

func (p *Preferences) persist(key, value string) {
	if p.db == nil {
		return
	}

	row := models.Preference{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	err := p.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		p.logger.Warn("persisting preference", "key", key, "error", err)
	}
}
