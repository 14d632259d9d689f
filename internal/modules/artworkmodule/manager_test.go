package artworkmodule

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ArtworkFile{}))

	manager := NewManager(db, nil, t.TempDir())
	require.NoError(t, manager.Initialize())
	return manager
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestManager_InitializeCreatesPlaceholder(t *testing.T) {
	manager := newTestManager(t)

	info, err := os.Stat(manager.PlaceholderPath())
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	for _, dir := range []string{customDir, externalDir, embeddedDir, placeholderDir} {
		assert.DirExists(t, filepath.Join(manager.Root(), dir))
	}
}

func TestManager_SaveCustomArtwork(t *testing.T) {
	manager := newTestManager(t)

	artwork, err := manager.SaveCustomArtwork(OwnerAlbum, "album-1", pngBytes(t, 320, 240), "image/png")
	require.NoError(t, err)
	require.NotNil(t, artwork)

	assert.Equal(t, OwnerAlbum, artwork.OwnerType)
	assert.Equal(t, "album-1", artwork.OwnerID)
	assert.Equal(t, KindCover, artwork.Kind)
	assert.Equal(t, "image/webp", artwork.Format)
	assert.Equal(t, 320, artwork.Width)
	assert.Equal(t, 240, artwork.Height)
	assert.True(t, artwork.Active)
	assert.True(t, strings.HasSuffix(artwork.Path, ".webp"))
	assert.FileExists(t, manager.AbsolutePath(artwork.Path))
}

func TestManager_SaveCustomArtworkReplacesPrevious(t *testing.T) {
	manager := newTestManager(t)

	first, err := manager.SaveCustomArtwork(OwnerArtist, "artist-1", pngBytes(t, 100, 100), "image/png")
	require.NoError(t, err)

	second, err := manager.SaveCustomArtwork(OwnerArtist, "artist-1", pngBytes(t, 200, 200), "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, first.Path, second.Path)

	active, err := manager.ActiveCustomArtwork(OwnerArtist, "artist-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	// The previous upload keeps its file but loses the active flag
	var previous ArtworkFile
	require.NoError(t, manager.db.First(&previous, "id = ?", first.ID).Error)
	assert.False(t, previous.Active)
	assert.FileExists(t, manager.AbsolutePath(first.Path))
}

func TestManager_SaveCustomArtworkRejectsBadInput(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.SaveCustomArtwork(OwnerArtist, "artist-1", nil, "image/png")
	assert.Error(t, err)

	_, err = manager.SaveCustomArtwork(OwnerArtist, "artist-1", []byte("not an image"), "image/png")
	assert.Error(t, err)
}

func TestManager_ActiveCustomArtworkMissing(t *testing.T) {
	manager := newTestManager(t)

	artwork, err := manager.ActiveCustomArtwork(OwnerUser, "nobody")
	require.NoError(t, err)
	assert.Nil(t, artwork)
}

func TestManager_RemoveCustomArtwork(t *testing.T) {
	manager := newTestManager(t)

	artwork, err := manager.SaveCustomArtwork(OwnerUser, "user-1", pngBytes(t, 64, 64), "image/png")
	require.NoError(t, err)
	fullPath := manager.AbsolutePath(artwork.Path)
	require.FileExists(t, fullPath)

	require.NoError(t, manager.RemoveCustomArtwork(OwnerUser, "user-1"))

	active, err := manager.ActiveCustomArtwork(OwnerUser, "user-1")
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.NoFileExists(t, fullPath)

	// Removing again is a no-op
	assert.NoError(t, manager.RemoveCustomArtwork(OwnerUser, "user-1"))
}

func TestManager_SaveExternalIsColumnOnly(t *testing.T) {
	manager := newTestManager(t)

	path, err := manager.SaveExternalArtistImage("artist-1", pngBytes(t, 80, 80), "image/png")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.True(t, strings.HasPrefix(path, manager.Root()))

	// Provider images never get a database record
	var count int64
	require.NoError(t, manager.db.Model(&ArtworkFile{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHashedPathShardsAndContentAddresses(t *testing.T) {
	a := hashedPath(externalDir, OwnerAlbum, "album-1", KindCover, []byte("one"))
	b := hashedPath(externalDir, OwnerAlbum, "album-1", KindCover, []byte("two"))
	c := hashedPath(externalDir, OwnerAlbum, "album-1", KindCover, []byte("one"))

	// Same owner, same shard directory; different content, different file
	assert.Equal(t, filepath.Dir(a), filepath.Dir(b))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}

func TestConvertToWebP(t *testing.T) {
	data, width, height, err := convertToWebP(pngBytes(t, 48, 32), "image/png", webpQuality)
	require.NoError(t, err)
	assert.Equal(t, 48, width)
	assert.Equal(t, 32, height)
	assert.NotEmpty(t, data)

	// Unknown content type falls back to sniffing the registered decoders
	data2, _, _, err := convertToWebP(pngBytes(t, 10, 10), "application/octet-stream", webpQuality)
	require.NoError(t, err)
	assert.NotEmpty(t, data2)
}
