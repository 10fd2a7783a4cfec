package models

import "time"

// Cache store names. Each corresponds to an object store in the on-disk
// cache database.
const (
	StoreCategories = "categories"
	StoreStreams    = "streams"
	StoreUserInfo   = "userInfo"
	StoreFavorites  = "favorites"
	StoreEPG        = "epg"
)

// AllStores lists every cache store.
var AllStores = []string{StoreCategories, StoreStreams, StoreUserInfo, StoreFavorites, StoreEPG}

// CredentialBoundStores lists the stores whose contents belong to a single
// provider identity. Favorites survive a credential change.
var CredentialBoundStores = []string{StoreCategories, StoreStreams, StoreUserInfo, StoreEPG}

// Well-known cache keys.
const (
	KeyAllStreams = "all_streams"
	KeyEPGData    = "epg_data"
)

// CategoryKey returns the cache key for a per-category stream list.
func CategoryKey(categoryID string) string {
	return "category_" + categoryID
}

// CacheRecord is a single cached entry: a JSON value filed under a
// (store, key) pair with its write time.
type CacheRecord struct {
	ID        uint   `gorm:"primarykey"`
	Store     string `gorm:"uniqueIndex:idx_store_key;not null;size:64"`
	Key       string `gorm:"uniqueIndex:idx_store_key;not null;size:255"`
	Value     string `gorm:"type:text;not null"`
	Timestamp int64  `gorm:"not null"`
}

// TableName returns the table name for cache records.
func (CacheRecord) TableName() string {
	return "cache_records"
}

// Preference is a small synchronous key/value setting.
type Preference struct {
	Key       string    `gorm:"primarykey;size:128"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for preferences.
func (Preference) TableName() string {
	return "preferences"
}

// Preference keys.
const (
	PrefCredentials        = "iptv_credentials"
	PrefFilterMarkers      = "filterMarkers"
	PrefEnableM3U8Logging  = "enableM3u8Logging"
	PrefEPGTimezone        = "epg_timezone"
	PrefAccordionExpanded  = "category_accordion_expanded"
	PrefFavoriteStreams    = "favorite_streams"
	PrefFavoriteSeries     = "favorite_series"
	PrefFavoriteVOD        = "favorite_vod"
	PrefFavoriteCategories = "favorite_categories"
)
