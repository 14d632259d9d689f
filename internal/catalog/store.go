// Package catalog is the persistence layer for enrichment: pending-work
// queries, field updates, and enrichment-state resets over the artist and
// album tables.
package catalog

import (
	"time"

	"github.com/mantonx/harmonia/internal/database"
	"gorm.io/gorm"
)

// Store is the catalog access contract the enrichment queue and enricher
// depend on. "Pending" means the enrichment-attempt stamp is null:
// MbzSearchedAt for artists, ExternalInfoUpdatedAt for albums.
type Store interface {
	NextPendingArtist() (*database.Artist, error)
	NextPendingAlbum() (*database.Album, error)
	CountPendingArtists() (int64, error)
	CountPendingAlbums() (int64, error)

	GetArtist(id string) (*database.Artist, error)
	GetAlbum(id string) (*database.Album, error)

	UpdateArtist(id string, fields map[string]interface{}) error
	UpdateAlbum(id string, fields map[string]interface{}) error

	// ResetArtistEnrichment / ResetAlbumEnrichment clear the enrichment
	// stamps so entities become pending again. With onlyWithoutExternalData
	// set, rows that already hold provider data keep their stamps; only
	// past no-result attempts are reopened.
	ResetArtistEnrichment(onlyWithoutExternalData bool) (int64, error)
	ResetAlbumEnrichment(onlyWithoutExternalData bool) (int64, error)
}

// GormStore implements Store on the shared gorm connection
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a catalog store bound to the given database
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// NextPendingArtist returns the newest artist awaiting enrichment, or
// (nil, nil) when none are pending. Newest-first so fresh library imports
// get metadata before old backlog.
func (s *GormStore) NextPendingArtist() (*database.Artist, error) {
	var artist database.Artist
	err := s.db.Where("mbz_searched_at IS NULL").
		Order("created_at DESC").
		First(&artist).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &artist, nil
}

// NextPendingAlbum returns the newest album awaiting enrichment, or
// (nil, nil) when none are pending
func (s *GormStore) NextPendingAlbum() (*database.Album, error) {
	var album database.Album
	err := s.db.Where("external_info_updated_at IS NULL").
		Order("created_at DESC").
		First(&album).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &album, nil
}

// CountPendingArtists counts artists awaiting enrichment
func (s *GormStore) CountPendingArtists() (int64, error) {
	var count int64
	err := s.db.Model(&database.Artist{}).
		Where("mbz_searched_at IS NULL").
		Count(&count).Error
	return count, err
}

// CountPendingAlbums counts albums awaiting enrichment
func (s *GormStore) CountPendingAlbums() (int64, error) {
	var count int64
	err := s.db.Model(&database.Album{}).
		Where("external_info_updated_at IS NULL").
		Count(&count).Error
	return count, err
}

// GetArtist loads one artist by id
func (s *GormStore) GetArtist(id string) (*database.Artist, error) {
	var artist database.Artist
	if err := s.db.Where("id = ?", id).First(&artist).Error; err != nil {
		return nil, err
	}
	return &artist, nil
}

// GetAlbum loads one album by id
func (s *GormStore) GetAlbum(id string) (*database.Album, error) {
	var album database.Album
	if err := s.db.Where("id = ?", id).First(&album).Error; err != nil {
		return nil, err
	}
	return &album, nil
}

// UpdateArtist applies a partial column update to one artist
func (s *GormStore) UpdateArtist(id string, fields map[string]interface{}) error {
	return s.db.Model(&database.Artist{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateAlbum applies a partial column update to one album
func (s *GormStore) UpdateAlbum(id string, fields map[string]interface{}) error {
	return s.db.Model(&database.Album{}).Where("id = ?", id).Updates(fields).Error
}

// ResetArtistEnrichment reopens artists for enrichment and returns the
// number of rows affected
func (s *GormStore) ResetArtistEnrichment(onlyWithoutExternalData bool) (int64, error) {
	query := s.db.Model(&database.Artist{}).Where("mbz_searched_at IS NOT NULL")
	if onlyWithoutExternalData {
		query = query.Where("external_info_updated_at IS NULL")
	}
	result := query.Updates(map[string]interface{}{
		"mbz_searched_at": nil,
		"updated_at":      time.Now(),
	})
	return result.RowsAffected, result.Error
}

// ResetAlbumEnrichment reopens albums for enrichment and returns the
// number of rows affected
func (s *GormStore) ResetAlbumEnrichment(onlyWithoutExternalData bool) (int64, error) {
	query := s.db.Model(&database.Album{}).Where("external_info_updated_at IS NOT NULL")
	if onlyWithoutExternalData {
		query = query.Where("(description = '' OR description IS NULL) AND (external_art_path = '' OR external_art_path IS NULL)")
	}
	result := query.Updates(map[string]interface{}{
		"external_info_updated_at": nil,
		"updated_at":               time.Now(),
	})
	return result.RowsAffected, result.Error
}
