package artworkmodule

import (
	"time"

	"github.com/google/uuid"
)

// OwnerType identifies which catalog entity an artwork file belongs to
type OwnerType string

const (
	OwnerArtist OwnerType = "artist"
	OwnerAlbum  OwnerType = "album"
	OwnerUser   OwnerType = "user"
)

// ArtworkKind is the role an image plays for its owner
type ArtworkKind string

const (
	KindImage  ArtworkKind = "image"  // artist profile image
	KindCover  ArtworkKind = "cover"  // album cover
	KindAvatar ArtworkKind = "avatar" // user avatar
)

// ArtworkFile is a user-uploaded artwork record. Only custom artwork gets
// a row here; provider and library-scanned images live as plain path
// columns on the owning entity. Active marks the upload currently served;
// superseded and self-healed rows stay around deactivated for audit.
type ArtworkFile struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerType OwnerType   `gorm:"index:idx_artwork_owner;not null" json:"owner_type"`
	OwnerID   string      `gorm:"index:idx_artwork_owner;type:varchar(36);not null" json:"owner_id"`
	Kind      ArtworkKind `gorm:"index:idx_artwork_owner;not null" json:"kind"`

	Path      string `gorm:"not null" json:"path"` // relative to the artwork root
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
	Active    bool   `gorm:"index" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// kindForOwner maps each owner type to its single artwork kind
func kindForOwner(owner OwnerType) ArtworkKind {
	switch owner {
	case OwnerAlbum:
		return KindCover
	case OwnerUser:
		return KindAvatar
	default:
		return KindImage
	}
}
