package artworkmodule

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"github.com/mantonx/harmonia/internal/events"
	"github.com/mantonx/harmonia/internal/logger"
	"gorm.io/gorm"
)

const (
	webpQuality = 95

	customDir      = "custom"
	externalDir    = "external"
	embeddedDir    = "embedded"
	placeholderDir = "placeholder"

	placeholderName = "album.webp"
	placeholderSize = 600
)

// Manager owns the artwork directory tree: user uploads, downloaded
// provider images, extracted embedded art, and the generated placeholder.
// Everything written here is normalized to WebP.
type Manager struct {
	db          *gorm.DB
	eventBus    events.EventBus
	artworkPath string
	cache       *ResolutionCache
	initialized bool
}

// NewManager creates a new artwork manager
func NewManager(db *gorm.DB, eventBus events.EventBus, artworkPath string) *Manager {
	return &Manager{
		db:          db,
		eventBus:    eventBus,
		artworkPath: artworkPath,
	}
}

// Initialize creates the directory tree and the generated placeholder
func (m *Manager) Initialize() error {
	for _, dir := range []string{customDir, externalDir, embeddedDir, placeholderDir} {
		if err := os.MkdirAll(filepath.Join(m.artworkPath, dir), 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := m.ensurePlaceholder(); err != nil {
		return fmt.Errorf("failed to generate placeholder: %w", err)
	}

	m.initialized = true
	logger.Info("Artwork manager initialized at %s", m.artworkPath)
	return nil
}

// SetResolutionCache attaches the resolution cache so writers can
// invalidate the affected entity synchronously
func (m *Manager) SetResolutionCache(cache *ResolutionCache) {
	m.cache = cache
}

// InvalidateArtistImage drops the artist's cached resolution. Called by
// writers right after the catalog points at new artwork, so readers never
// wait out the TTL on a stale answer.
func (m *Manager) InvalidateArtistImage(artistID string) {
	if m.cache != nil {
		m.cache.Invalidate(resolutionKey(OwnerArtist, artistID))
	}
}

// InvalidateAlbumCover drops the album's cached resolution
func (m *Manager) InvalidateAlbumCover(albumID string) {
	if m.cache != nil {
		m.cache.Invalidate(resolutionKey(OwnerAlbum, albumID))
	}
}

// Root returns the artwork directory root
func (m *Manager) Root() string {
	return m.artworkPath
}

// AbsolutePath resolves a stored relative artwork path
func (m *Manager) AbsolutePath(relative string) string {
	return filepath.Join(m.artworkPath, relative)
}

// PlaceholderPath returns the generated default album cover
func (m *Manager) PlaceholderPath() string {
	return filepath.Join(m.artworkPath, placeholderDir, placeholderName)
}

// EmbeddedCachePath returns where extracted embedded art for an album is
// cached
func (m *Manager) EmbeddedCachePath(albumID, ext string) string {
	return filepath.Join(m.artworkPath, embeddedDir, albumID+ext)
}

// SaveCustomArtwork stores a user upload as the owner's active artwork.
// Previous uploads are deactivated, not deleted, so the change is
// reversible from the database side.
func (m *Manager) SaveCustomArtwork(owner OwnerType, ownerID string, data []byte, mimeType string) (*ArtworkFile, error) {
	if !m.initialized {
		return nil, fmt.Errorf("artwork manager not initialized")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	webpData, width, height, err := convertToWebP(data, mimeType, webpQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to WebP: %w", err)
	}

	kind := kindForOwner(owner)
	relativePath := hashedPath(customDir, owner, ownerID, kind, webpData)
	fullPath := filepath.Join(m.artworkPath, relativePath)
	if err := writeFile(fullPath, webpData); err != nil {
		return nil, err
	}

	artwork := &ArtworkFile{
		ID:        uuid.New(),
		OwnerType: owner,
		OwnerID:   ownerID,
		Kind:      kind,
		Path:      relativePath,
		Format:    "image/webp",
		Width:     width,
		Height:    height,
		SizeBytes: int64(len(webpData)),
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ArtworkFile{}).
			Where("owner_type = ? AND owner_id = ? AND kind = ? AND active = ?", owner, ownerID, kind, true).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Create(artwork).Error
	})
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to save artwork record: %w", err)
	}

	m.publishArtworkEvent(events.EventArtworkUpdated, artwork)
	return artwork, nil
}

// ActiveCustomArtwork returns the owner's active upload, or (nil, nil)
// when none exists
func (m *Manager) ActiveCustomArtwork(owner OwnerType, ownerID string) (*ArtworkFile, error) {
	var artwork ArtworkFile
	err := m.db.Where("owner_type = ? AND owner_id = ? AND kind = ? AND active = ?",
		owner, ownerID, kindForOwner(owner), true).First(&artwork).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &artwork, nil
}

// DeactivateArtwork retires an upload without touching its file. Used
// both for explicit removal and for self-healing records whose files
// vanished from disk.
func (m *Manager) DeactivateArtwork(artwork *ArtworkFile) error {
	if err := m.db.Model(artwork).Update("active", false).Error; err != nil {
		return fmt.Errorf("failed to deactivate artwork: %w", err)
	}
	m.publishArtworkEvent(events.EventArtworkRemoved, artwork)
	return nil
}

// RemoveCustomArtwork deactivates the owner's active upload and deletes
// its file
func (m *Manager) RemoveCustomArtwork(owner OwnerType, ownerID string) error {
	artwork, err := m.ActiveCustomArtwork(owner, ownerID)
	if err != nil {
		return err
	}
	if artwork == nil {
		return nil
	}

	if err := m.DeactivateArtwork(artwork); err != nil {
		return err
	}
	fullPath := m.AbsolutePath(artwork.Path)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove artwork file %s: %v", fullPath, err)
	}
	return nil
}

// SaveExternalArtistImage stores a downloaded provider image for an
// artist and returns its absolute path for the artist's image column.
func (m *Manager) SaveExternalArtistImage(artistID string, data []byte, mimeType string) (string, error) {
	return m.saveExternal(OwnerArtist, artistID, data, mimeType)
}

// SaveExternalAlbumCover stores a downloaded provider cover for an album
func (m *Manager) SaveExternalAlbumCover(albumID string, data []byte, mimeType string) (string, error) {
	return m.saveExternal(OwnerAlbum, albumID, data, mimeType)
}

// saveExternal writes provider artwork to disk. No database row: the
// owning entity's path column is the single source of truth for external
// images, which keeps enrichment resets a pure column update.
func (m *Manager) saveExternal(owner OwnerType, ownerID string, data []byte, mimeType string) (string, error) {
	if !m.initialized {
		return "", fmt.Errorf("artwork manager not initialized")
	}

	webpData, _, _, err := convertToWebP(data, mimeType, webpQuality)
	if err != nil {
		return "", fmt.Errorf("failed to convert image to WebP: %w", err)
	}

	relativePath := hashedPath(externalDir, owner, ownerID, kindForOwner(owner), webpData)
	fullPath := filepath.Join(m.artworkPath, relativePath)
	if err := writeFile(fullPath, webpData); err != nil {
		return "", err
	}
	return fullPath, nil
}

// hashedPath builds {base}/{owner}/{shard}/{kind}_{content_hash}.webp.
// Sharding on the owner hash keeps directories small; the content hash
// in the filename makes replacing an image produce a new path, so
// immutable HTTP caching stays correct.
func hashedPath(base string, owner OwnerType, ownerID string, kind ArtworkKind, data []byte) string {
	ownerHash := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", owner, ownerID)))
	contentHash := sha256.Sum256(data)

	shard := hex.EncodeToString(ownerHash[:])[:2]
	filename := fmt.Sprintf("%s_%s.webp", kind, hex.EncodeToString(contentHash[:])[:16])
	return filepath.Join(base, string(owner), shard, filename)
}

func writeFile(fullPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", fullPath, err)
	}
	return nil
}

// convertToWebP converts an image to WebP with the given quality
func convertToWebP(data []byte, mimeType string, quality int) ([]byte, int, int, error) {
	var img image.Image
	var err error

	reader := bytes.NewReader(data)
	switch mimeType {
	case "image/webp":
		img, err = webp.Decode(reader)
	case "image/jpeg", "image/jpg":
		img, err = jpeg.Decode(reader)
	case "image/png":
		img, err = png.Decode(reader)
	case "image/gif":
		img, err = gif.Decode(reader)
	default:
		img, _, err = image.Decode(reader)
	}
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode as WebP: %w", err)
	}
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// ensurePlaceholder generates the default album cover once: a flat dark
// square with a lighter center disc, encoded to WebP like everything else.
func (m *Manager) ensurePlaceholder() error {
	path := m.PlaceholderPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	background := color.RGBA{R: 38, G: 38, B: 42, A: 255}
	disc := color.RGBA{R: 64, G: 64, B: 70, A: 255}
	hole := color.RGBA{R: 30, G: 30, B: 33, A: 255}

	center := placeholderSize / 2
	discRadius := placeholderSize * 2 / 5
	holeRadius := placeholderSize / 12

	for y := 0; y < placeholderSize; y++ {
		for x := 0; x < placeholderSize; x++ {
			dx, dy := x-center, y-center
			distSq := dx*dx + dy*dy
			switch {
			case distSq <= holeRadius*holeRadius:
				img.Set(x, y, hole)
			case distSq <= discRadius*discRadius:
				img.Set(x, y, disc)
			default:
				img.Set(x, y, background)
			}
		}
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: 90}); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

func (m *Manager) publishArtworkEvent(eventType events.EventType, artwork *ArtworkFile) {
	if m.eventBus == nil {
		return
	}
	event := events.NewSystemEvent(eventType,
		fmt.Sprintf("Artwork %s", eventType),
		fmt.Sprintf("%s artwork for %s %s", artwork.Kind, artwork.OwnerType, artwork.OwnerID))
	event.Data = map[string]interface{}{
		"artwork_id": artwork.ID.String(),
		"owner_type": string(artwork.OwnerType),
		"owner_id":   artwork.OwnerID,
		"path":       artwork.Path,
	}
	m.eventBus.PublishAsync(event)
}
