// Package settings provides the runtime key→value settings store backing
// admin-tunable knobs: provider API keys, agent toggles, rate limits, and
// queue delays. Values are read through a short-lived cache so hot paths
// don't hit the database on every call.
package settings

import (
	"strconv"
	"strings"
	"time"

	"github.com/mantonx/harmonia/internal/logger"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

const (
	cacheTTL     = time.Minute
	cacheCleanup = 5 * time.Minute
)

// Setting is a single persisted key/value pair
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reader is the read-only view handed to provider agents and the queue
type Reader interface {
	GetString(key, fallback string) string
	GetBool(key string, fallback bool) bool
	GetInt(key string, fallback int) int
	GetFloat(key string, fallback float64) float64

	// FirstString walks the given keys and returns the first non-empty
	// value. Used for the new/legacy key-namespace fallback.
	FirstString(keys []string, fallback string) string
}

// Service reads and writes settings with a short-TTL cache in front
type Service struct {
	db    *gorm.DB
	cache *gocache.Cache
}

// NewService creates a settings service bound to the given database
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:    db,
		cache: gocache.New(cacheTTL, cacheCleanup),
	}
}

// Migrate creates the settings table
func (s *Service) Migrate() error {
	return s.db.AutoMigrate(&Setting{})
}

func (s *Service) raw(key string) (string, bool) {
	if cached, found := s.cache.Get(key); found {
		return cached.(string), cached.(string) != ""
	}

	var setting Setting
	err := s.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to read setting %s: %v", key, err)
		}
		// Negative entries avoid re-querying missing keys on every call
		s.cache.Set(key, "", gocache.DefaultExpiration)
		return "", false
	}

	s.cache.Set(key, setting.Value, gocache.DefaultExpiration)
	return setting.Value, setting.Value != ""
}

// GetString returns the value for key, or fallback when unset/empty
func (s *Service) GetString(key, fallback string) string {
	if value, ok := s.raw(key); ok {
		return value
	}
	return fallback
}

// GetBool returns the boolean value for key, or fallback when unset/invalid
func (s *Service) GetBool(key string, fallback bool) bool {
	value, ok := s.raw(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

// GetInt returns the integer value for key, or fallback when unset/invalid
func (s *Service) GetInt(key string, fallback int) int {
	value, ok := s.raw(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

// GetFloat returns the float value for key, or fallback when unset/invalid
func (s *Service) GetFloat(key string, fallback float64) float64 {
	value, ok := s.raw(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// FirstString walks the given keys and returns the first non-empty value
func (s *Service) FirstString(keys []string, fallback string) string {
	for _, key := range keys {
		if value, ok := s.raw(key); ok {
			return value
		}
	}
	return fallback
}

// Set persists a value and drops it from the cache so the next read sees it
func (s *Service) Set(key, value string) error {
	setting := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	if err := s.db.Save(&setting).Error; err != nil {
		return err
	}
	s.cache.Delete(key)
	return nil
}

// Flush drops every cached value; used after bulk admin updates
func (s *Service) Flush() {
	s.cache.Flush()
}
