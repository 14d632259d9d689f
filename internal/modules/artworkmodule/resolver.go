package artworkmodule

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dhowden/tag"
	"github.com/mantonx/harmonia/internal/catalog"
	"github.com/mantonx/harmonia/internal/events"
	"github.com/mantonx/harmonia/internal/logger"
	"github.com/mantonx/harmonia/internal/utils"
	"golang.org/x/sync/singleflight"
)

// ErrNoArtwork means no source in the cascade produced an image
var ErrNoArtwork = errors.New("no artwork available")

// Resolved is the outcome of an artwork resolution: a readable file plus
// the validator tag clients cache against.
type Resolved struct {
	Path         string    `json:"path"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	Tag          string    `json:"tag"`
	Source       string    `json:"source"`
}

// Resolver walks the artwork source cascade for an entity and self-heals
// stale pointers along the way: any source whose file has vanished from
// disk is cleared so the next resolution skips straight past it.
//
// Artist cascade:  custom upload → library image → provider image
// Album cascade:   custom upload → provider cover → embedded art → placeholder
// User cascade:    custom upload only
type Resolver struct {
	manager  *Manager
	store    catalog.Store
	cache    *ResolutionCache
	eventBus events.EventBus
	group    singleflight.Group
}

// NewResolver creates a resolver over the given manager and catalog
func NewResolver(manager *Manager, store catalog.Store, cache *ResolutionCache, eventBus events.EventBus) *Resolver {
	return &Resolver{
		manager:  manager,
		store:    store,
		cache:    cache,
		eventBus: eventBus,
	}
}

// ResolveArtistImage resolves the artist's profile image
func (r *Resolver) ResolveArtistImage(artistID string) (*Resolved, error) {
	return r.resolve(resolutionKey(OwnerArtist, artistID), func() (*Resolved, error) {
		return r.resolveArtist(artistID)
	})
}

// ResolveAlbumCover resolves the album's cover. Albums always resolve:
// when every real source fails the generated placeholder is served.
func (r *Resolver) ResolveAlbumCover(albumID string) (*Resolved, error) {
	return r.resolve(resolutionKey(OwnerAlbum, albumID), func() (*Resolved, error) {
		return r.resolveAlbum(albumID)
	})
}

// ResolveUserAvatar resolves a user's uploaded avatar
func (r *Resolver) ResolveUserAvatar(userID string) (*Resolved, error) {
	return r.resolve(resolutionKey(OwnerUser, userID), func() (*Resolved, error) {
		resolved, err := r.resolveCustom(OwnerUser, userID)
		if err != nil || resolved != nil {
			return resolved, err
		}
		return nil, ErrNoArtwork
	})
}

// resolve wraps a cascade walk with the cache and a singleflight group,
// so a burst of requests for the same entity does one walk.
func (r *Resolver) resolve(key string, walk func() (*Resolved, error)) (*Resolved, error) {
	if cached, found := r.cache.Get(key); found {
		return cached, nil
	}

	result, err, _ := r.group.Do(key, func() (interface{}, error) {
		resolved, err := walk()
		if err != nil {
			return nil, err
		}
		r.cache.Set(key, resolved)
		return resolved, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Resolved), nil
}

func (r *Resolver) resolveArtist(artistID string) (*Resolved, error) {
	if resolved, err := r.resolveCustom(OwnerArtist, artistID); err != nil || resolved != nil {
		return resolved, err
	}

	artist, err := r.store.GetArtist(artistID)
	if err != nil {
		return nil, fmt.Errorf("artist not found: %w", err)
	}

	if artist.LocalImagePath != "" {
		if utils.FileExists(artist.LocalImagePath) {
			return r.resolved(artist.LocalImagePath, "local")
		}
		r.healArtistColumn(artistID, "local_image_path", artist.LocalImagePath)
	}

	if artist.ExternalImagePath != "" {
		if utils.FileExists(artist.ExternalImagePath) {
			return r.resolved(artist.ExternalImagePath, "external")
		}
		r.healArtistColumn(artistID, "external_image_path", artist.ExternalImagePath)
	}

	return nil, ErrNoArtwork
}

func (r *Resolver) resolveAlbum(albumID string) (*Resolved, error) {
	if resolved, err := r.resolveCustom(OwnerAlbum, albumID); err != nil || resolved != nil {
		return resolved, err
	}

	album, err := r.store.GetAlbum(albumID)
	if err != nil {
		return nil, fmt.Errorf("album not found: %w", err)
	}

	// Provider covers rank above embedded art: embedded pictures are
	// frequently low-resolution thumbnails from the ripping tool.
	if album.ExternalArtPath != "" {
		if utils.FileExists(album.ExternalArtPath) {
			return r.resolved(album.ExternalArtPath, "external")
		}
		r.healAlbumColumn(albumID, "external_art_path", album.ExternalArtPath)
	}

	if album.EmbeddedArtPath != "" {
		if path, err := r.extractEmbeddedArt(albumID, album.EmbeddedArtPath); err == nil {
			return r.resolved(path, "embedded")
		} else {
			logger.Warn("Embedded art extraction failed for album %s: %v", albumID, err)
			r.healAlbumColumn(albumID, "embedded_art_path", album.EmbeddedArtPath)
		}
	}

	return r.resolved(r.manager.PlaceholderPath(), "default")
}

// resolveCustom checks the active user upload, deactivating records whose
// files are gone. Returns (nil, nil) when no usable upload exists.
func (r *Resolver) resolveCustom(owner OwnerType, ownerID string) (*Resolved, error) {
	artwork, err := r.manager.ActiveCustomArtwork(owner, ownerID)
	if err != nil {
		return nil, err
	}
	if artwork == nil {
		return nil, nil
	}

	fullPath := r.manager.AbsolutePath(artwork.Path)
	if utils.FileExists(fullPath) {
		return r.resolved(fullPath, "custom")
	}

	logger.Warn("Custom artwork file missing for %s %s, deactivating record", owner, ownerID)
	if err := r.manager.DeactivateArtwork(artwork); err != nil {
		logger.Error("Failed to deactivate stale artwork record: %v", err)
	}
	return nil, nil
}

// extractEmbeddedArt pulls the embedded picture out of an album's audio
// file, caching the extraction next to the other artwork.
func (r *Resolver) extractEmbeddedArt(albumID, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return "", fmt.Errorf("failed to read tags: %w", err)
	}
	picture := metadata.Picture()
	if picture == nil || len(picture.Data) == 0 {
		return "", fmt.Errorf("no embedded picture in %s", audioPath)
	}

	dest := r.manager.EmbeddedCachePath(albumID, utils.ExtensionForMimeType(picture.MIMEType))
	if utils.FileExists(dest) {
		return dest, nil
	}
	if err := writeFile(dest, picture.Data); err != nil {
		return "", err
	}
	return dest, nil
}

// resolved stats the file and builds the cacheable result with its
// validator tag
func (r *Resolver) resolved(path, source string) (*Resolved, error) {
	info, err := utils.StatFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat artwork file: %w", err)
	}
	return &Resolved{
		Path:         path,
		MimeType:     utils.MimeTypeForFile(path),
		Size:         info.Size,
		LastModified: info.ModTime,
		Tag:          utils.FileTag(path, info.ModTime),
		Source:       source,
	}, nil
}

func (r *Resolver) healArtistColumn(artistID, column, stalePath string) {
	logger.Warn("Artist %s %s points at missing file %s, clearing", artistID, column, stalePath)
	if err := r.store.UpdateArtist(artistID, map[string]interface{}{column: ""}); err != nil {
		logger.Error("Failed to clear stale %s for artist %s: %v", column, artistID, err)
		return
	}
	r.publishRemoved("artist", artistID, stalePath)
}

func (r *Resolver) healAlbumColumn(albumID, column, stalePath string) {
	logger.Warn("Album %s %s points at missing file %s, clearing", albumID, column, stalePath)
	if err := r.store.UpdateAlbum(albumID, map[string]interface{}{column: ""}); err != nil {
		logger.Error("Failed to clear stale %s for album %s: %v", column, albumID, err)
		return
	}
	r.publishRemoved("album", albumID, stalePath)
}

func (r *Resolver) publishRemoved(ownerType, ownerID, stalePath string) {
	if r.eventBus == nil {
		return
	}
	event := events.NewSystemEvent(events.EventArtworkRemoved,
		"Stale artwork cleared", fmt.Sprintf("%s %s", ownerType, ownerID))
	event.Data = map[string]interface{}{
		"owner_type": ownerType,
		"owner_id":   ownerID,
		"path":       stalePath,
	}
	r.eventBus.PublishAsync(event)
}
