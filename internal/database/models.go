package database

import (
	"time"
)

// Artist represents a catalog artist.
//
// MbzSearchedAt is the enrichment-attempt stamp: an artist is pending
// enrichment while it is nil. ExternalInfoUpdatedAt records when provider
// data (bio, images) was last written.
type Artist struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name     string `gorm:"not null;index" json:"name"`
	SortName string `json:"sort_name,omitempty"`

	MbzArtistID string `gorm:"index" json:"mbz_artist_id,omitempty"`

	Biography       string `gorm:"type:text" json:"biography,omitempty"`
	BiographySource string `json:"biography_source,omitempty"`
	ExternalURL     string `json:"external_url,omitempty"`
	SimilarArtists  string `gorm:"type:text" json:"similar_artists,omitempty"` // JSON array of names
	Genres          string `gorm:"type:text" json:"genres,omitempty"`          // JSON array of tag names

	// Image pointers for the resolution cascade. LocalImagePath is recorded
	// by the library scan (artist.jpg next to the files); ExternalImagePath
	// points at provider artwork downloaded into the artwork store.
	LocalImagePath    string `json:"local_image_path,omitempty"`
	ExternalImagePath string `json:"external_image_path,omitempty"`

	MbzSearchedAt         *time.Time `gorm:"index" json:"mbz_searched_at,omitempty"`
	ExternalInfoUpdatedAt *time.Time `gorm:"index" json:"external_info_updated_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Album represents a catalog album.
//
// An album is pending enrichment while ExternalInfoUpdatedAt is nil.
type Album struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name     string `gorm:"not null;index" json:"name"`
	ArtistID string `gorm:"type:varchar(36);not null;index" json:"artist_id"`
	Artist   Artist `gorm:"foreignKey:ArtistID" json:"artist,omitempty"`

	MbzAlbumID string `gorm:"index" json:"mbz_album_id,omitempty"`

	Description       string `gorm:"type:text" json:"description,omitempty"`
	DescriptionSource string `json:"description_source,omitempty"`

	// EmbeddedArtPath points at an audio file of this album that carries
	// embedded cover art; ExternalArtPath at downloaded provider artwork.
	EmbeddedArtPath string `json:"embedded_art_path,omitempty"`
	ExternalArtPath string `json:"external_art_path,omitempty"`

	ExternalInfoUpdatedAt *time.Time `gorm:"index" json:"external_info_updated_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Track represents a media file belonging to an album. The enrichment core
// never mutates tracks; they exist so album enrichment can reach the files.
type Track struct {
	ID          string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string  `gorm:"not null" json:"title"`
	AlbumID     string  `gorm:"type:varchar(36);index" json:"album_id"`
	ArtistID    string  `gorm:"type:varchar(36);index" json:"artist_id"`
	Path        string  `gorm:"not null" json:"path"`
	Duration    float64 `json:"duration,omitempty"`
	TrackNumber int     `json:"track_number,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents a user in the system
type User struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
