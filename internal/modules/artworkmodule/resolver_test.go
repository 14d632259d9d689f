package artworkmodule

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mantonx/harmonia/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeCatalog keeps artists and albums in memory and applies column
// updates so self-healing is observable across resolutions.
type fakeCatalog struct {
	artists map[string]*database.Artist
	albums  map[string]*database.Album

	artistUpdates []map[string]interface{}
	albumUpdates  []map[string]interface{}
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		artists: make(map[string]*database.Artist),
		albums:  make(map[string]*database.Album),
	}
}

func (f *fakeCatalog) NextPendingArtist() (*database.Artist, error) { return nil, nil }
func (f *fakeCatalog) NextPendingAlbum() (*database.Album, error)  { return nil, nil }
func (f *fakeCatalog) CountPendingArtists() (int64, error)         { return 0, nil }
func (f *fakeCatalog) CountPendingAlbums() (int64, error)          { return 0, nil }

func (f *fakeCatalog) GetArtist(id string) (*database.Artist, error) {
	if artist, ok := f.artists[id]; ok {
		return artist, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalog) GetAlbum(id string) (*database.Album, error) {
	if album, ok := f.albums[id]; ok {
		return album, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalog) UpdateArtist(id string, fields map[string]interface{}) error {
	f.artistUpdates = append(f.artistUpdates, fields)
	artist := f.artists[id]
	if value, ok := fields["local_image_path"]; ok {
		artist.LocalImagePath = value.(string)
	}
	if value, ok := fields["external_image_path"]; ok {
		artist.ExternalImagePath = value.(string)
	}
	return nil
}

func (f *fakeCatalog) UpdateAlbum(id string, fields map[string]interface{}) error {
	f.albumUpdates = append(f.albumUpdates, fields)
	album := f.albums[id]
	if value, ok := fields["external_art_path"]; ok {
		album.ExternalArtPath = value.(string)
	}
	if value, ok := fields["embedded_art_path"]; ok {
		album.EmbeddedArtPath = value.(string)
	}
	return nil
}

func (f *fakeCatalog) ResetArtistEnrichment(bool) (int64, error) { return 0, nil }
func (f *fakeCatalog) ResetAlbumEnrichment(bool) (int64, error)  { return 0, nil }

func newTestResolver(t *testing.T) (*Resolver, *Manager, *fakeCatalog) {
	t.Helper()
	manager := newTestManager(t)
	catalog := newFakeCatalog()
	cache := NewResolutionCache()
	manager.SetResolutionCache(cache)
	resolver := NewResolver(manager, catalog, cache, nil)
	return resolver, manager, catalog
}

// writeImageFile drops opaque bytes at path; the resolver only stats
// cascade files, it never decodes them.
func writeImageFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("image-bytes-"+name), 0644))
	return path
}

func TestResolver_CustomUploadWins(t *testing.T) {
	resolver, manager, catalog := newTestResolver(t)

	external := writeImageFile(t, t.TempDir(), "external.webp")
	catalog.artists["artist-1"] = &database.Artist{ID: "artist-1", ExternalImagePath: external}

	_, err := manager.SaveCustomArtwork(OwnerArtist, "artist-1", pngBytes(t, 50, 50), "image/png")
	require.NoError(t, err)

	resolved, err := resolver.ResolveArtistImage("artist-1")
	require.NoError(t, err)
	assert.Equal(t, "custom", resolved.Source)
	assert.Equal(t, "image/webp", resolved.MimeType)
	assert.Greater(t, resolved.Size, int64(0))
	assert.False(t, resolved.LastModified.IsZero())
	assert.NotEmpty(t, resolved.Tag)
}

func TestResolver_ArtistLocalBeforeExternal(t *testing.T) {
	resolver, _, catalog := newTestResolver(t)

	dir := t.TempDir()
	local := writeImageFile(t, dir, "artist.jpg")
	external := writeImageFile(t, dir, "external.webp")
	catalog.artists["artist-1"] = &database.Artist{
		ID:                "artist-1",
		LocalImagePath:    local,
		ExternalImagePath: external,
	}

	resolved, err := resolver.ResolveArtistImage("artist-1")
	require.NoError(t, err)
	assert.Equal(t, "local", resolved.Source)
	assert.Equal(t, local, resolved.Path)
	assert.Equal(t, "image/jpeg", resolved.MimeType)
}

func TestResolver_ArtistHealsMissingLocalImage(t *testing.T) {
	resolver, _, catalog := newTestResolver(t)

	external := writeImageFile(t, t.TempDir(), "external.webp")
	catalog.artists["artist-1"] = &database.Artist{
		ID:                "artist-1",
		LocalImagePath:    "/gone/artist.jpg",
		ExternalImagePath: external,
	}

	resolved, err := resolver.ResolveArtistImage("artist-1")
	require.NoError(t, err)
	assert.Equal(t, "external", resolved.Source)

	// The dangling pointer was cleared on the way past
	require.Len(t, catalog.artistUpdates, 1)
	assert.Equal(t, map[string]interface{}{"local_image_path": ""}, catalog.artistUpdates[0])
	assert.Empty(t, catalog.artists["artist-1"].LocalImagePath)
}

func TestResolver_ArtistWithoutAnySource(t *testing.T) {
	resolver, _, catalog := newTestResolver(t)
	catalog.artists["artist-1"] = &database.Artist{ID: "artist-1"}

	resolved, err := resolver.ResolveArtistImage("artist-1")
	assert.Nil(t, resolved)
	assert.ErrorIs(t, err, ErrNoArtwork)
}

func TestResolver_UnknownArtist(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	_, err := resolver.ResolveArtistImage("missing")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoArtwork)
}

func TestResolver_AlbumFallsBackToPlaceholder(t *testing.T) {
	resolver, manager, catalog := newTestResolver(t)
	catalog.albums["album-1"] = &database.Album{ID: "album-1"}

	resolved, err := resolver.ResolveAlbumCover("album-1")
	require.NoError(t, err)
	assert.Equal(t, "default", resolved.Source)
	assert.Equal(t, manager.PlaceholderPath(), resolved.Path)
}

func TestResolver_AlbumHealsMissingSources(t *testing.T) {
	resolver, _, catalog := newTestResolver(t)
	catalog.albums["album-1"] = &database.Album{
		ID:              "album-1",
		ExternalArtPath: "/gone/cover.webp",
		EmbeddedArtPath: "/gone/track.flac",
	}

	resolved, err := resolver.ResolveAlbumCover("album-1")
	require.NoError(t, err)
	assert.Equal(t, "default", resolved.Source)

	require.Len(t, catalog.albumUpdates, 2)
	assert.Equal(t, map[string]interface{}{"external_art_path": ""}, catalog.albumUpdates[0])
	assert.Equal(t, map[string]interface{}{"embedded_art_path": ""}, catalog.albumUpdates[1])
}

func TestResolver_AlbumPrefersExternalOverEmbedded(t *testing.T) {
	resolver, _, catalog := newTestResolver(t)

	dir := t.TempDir()
	external := writeImageFile(t, dir, "cover.webp")
	catalog.albums["album-1"] = &database.Album{
		ID:              "album-1",
		ExternalArtPath: external,
		EmbeddedArtPath: filepath.Join(dir, "track.flac"),
	}

	resolved, err := resolver.ResolveAlbumCover("album-1")
	require.NoError(t, err)
	assert.Equal(t, "external", resolved.Source)
	assert.Equal(t, external, resolved.Path)
}

func TestResolver_UserAvatarOnlyCustom(t *testing.T) {
	resolver, manager, _ := newTestResolver(t)

	_, err := resolver.ResolveUserAvatar("user-1")
	assert.ErrorIs(t, err, ErrNoArtwork)

	_, err = manager.SaveCustomArtwork(OwnerUser, "user-1", pngBytes(t, 40, 40), "image/png")
	require.NoError(t, err)

	resolved, err := resolver.ResolveUserAvatar("user-1")
	require.NoError(t, err)
	assert.Equal(t, "custom", resolved.Source)
}

func TestResolver_DeactivatesUploadWithMissingFile(t *testing.T) {
	resolver, manager, catalog := newTestResolver(t)
	catalog.artists["artist-1"] = &database.Artist{ID: "artist-1"}

	artwork, err := manager.SaveCustomArtwork(OwnerArtist, "artist-1", pngBytes(t, 30, 30), "image/png")
	require.NoError(t, err)
	require.NoError(t, os.Remove(manager.AbsolutePath(artwork.Path)))

	_, err = resolver.ResolveArtistImage("artist-1")
	assert.ErrorIs(t, err, ErrNoArtwork)

	active, err := manager.ActiveCustomArtwork(OwnerArtist, "artist-1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestResolver_CachesAcrossCalls(t *testing.T) {
	resolver, _, catalog := newTestResolver(t)

	external := writeImageFile(t, t.TempDir(), "external.webp")
	catalog.artists["artist-1"] = &database.Artist{ID: "artist-1", ExternalImagePath: external}

	first, err := resolver.ResolveArtistImage("artist-1")
	require.NoError(t, err)

	// Break the source on disk: the cached answer keeps serving until
	// something invalidates it.
	require.NoError(t, os.Remove(external))

	second, err := resolver.ResolveArtistImage("artist-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	resolver.cache.Invalidate("artist:artist-1")
	_, err = resolver.ResolveArtistImage("artist-1")
	assert.ErrorIs(t, err, ErrNoArtwork)
}

func TestResolver_InvalidationAfterExternalWriteServesNewCover(t *testing.T) {
	resolver, manager, catalog := newTestResolver(t)
	catalog.albums["album-1"] = &database.Album{ID: "album-1"}

	// With no sources the placeholder gets cached.
	resolved, err := resolver.ResolveAlbumCover("album-1")
	require.NoError(t, err)
	require.Equal(t, "default", resolved.Source)

	// The enrichment write path: store the downloaded cover, point the
	// catalog at it, invalidate the album's slot.
	path, err := manager.SaveExternalAlbumCover("album-1", pngBytes(t, 500, 500), "image/png")
	require.NoError(t, err)
	catalog.albums["album-1"].ExternalArtPath = path
	manager.InvalidateAlbumCover("album-1")

	resolved, err = resolver.ResolveAlbumCover("album-1")
	require.NoError(t, err)
	assert.Equal(t, "external", resolved.Source)
	assert.Equal(t, path, resolved.Path)
}

func TestResolver_InvalidationAfterExternalWriteServesNewImage(t *testing.T) {
	resolver, manager, catalog := newTestResolver(t)
	catalog.artists["artist-1"] = &database.Artist{ID: "artist-1"}

	_, err := resolver.ResolveArtistImage("artist-1")
	require.ErrorIs(t, err, ErrNoArtwork)

	path, err := manager.SaveExternalArtistImage("artist-1", pngBytes(t, 400, 400), "image/png")
	require.NoError(t, err)
	catalog.artists["artist-1"].ExternalImagePath = path
	manager.InvalidateArtistImage("artist-1")

	resolved, err := resolver.ResolveArtistImage("artist-1")
	require.NoError(t, err)
	assert.Equal(t, "external", resolved.Source)
	assert.Equal(t, path, resolved.Path)
}

func TestResolver_TagFollowsFileChanges(t *testing.T) {
	resolver, _, catalog := newTestResolver(t)

	external := writeImageFile(t, t.TempDir(), "external.webp")
	catalog.artists["artist-1"] = &database.Artist{ID: "artist-1", ExternalImagePath: external}

	first, err := resolver.ResolveArtistImage("artist-1")
	require.NoError(t, err)

	// Replacing the file bumps its mtime, which must produce a new tag
	newTime := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(external, newTime, newTime))
	resolver.cache.Invalidate("artist:artist-1")

	second, err := resolver.ResolveArtistImage("artist-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.Tag, second.Tag)
}
