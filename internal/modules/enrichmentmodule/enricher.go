package enrichmentmodule

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mantonx/harmonia/internal/agents"
	"github.com/mantonx/harmonia/internal/catalog"
	"github.com/mantonx/harmonia/internal/database"
	"github.com/mantonx/harmonia/internal/logger"
)

// ArtworkStore persists downloaded provider images and returns the stored
// path. Implemented by the artwork module's manager. Writers must call the
// invalidation hooks right after the catalog points at new artwork, so
// readers see the new image immediately instead of a cached resolution.
type ArtworkStore interface {
	SaveExternalArtistImage(artistID string, data []byte, mimeType string) (string, error)
	SaveExternalAlbumCover(albumID string, data []byte, mimeType string) (string, error)
	InvalidateArtistImage(artistID string)
	InvalidateAlbumCover(albumID string)
}

// Optional agent capabilities the enricher probes for. Only Last.fm
// exposes these today, but probing keeps the enricher provider-agnostic.
type similarArtistRetriever interface {
	GetSimilarArtists(ctx context.Context, mbid, name string) ([]string, error)
}

type topTagRetriever interface {
	GetTopTags(ctx context.Context, mbid, name string) ([]string, error)
}

type albumDescriptionRetriever interface {
	GetAlbumDescription(ctx context.Context, mbid, artist, album string) (string, error)
}

// Enricher performs the per-entity enrichment work: resolve MusicBrainz
// ids, gather metadata by agent priority, and download the best image.
// The queue drives it one entity at a time.
type Enricher struct {
	store        catalog.Store
	registry     *agents.Registry
	orchestrator *agents.Orchestrator
	downloader   *ImageDownloader
	artwork      ArtworkStore
}

// NewEnricher creates an enricher over the given collaborators
func NewEnricher(store catalog.Store, registry *agents.Registry, orchestrator *agents.Orchestrator, downloader *ImageDownloader, artwork ArtworkStore) *Enricher {
	return &Enricher{
		store:        store,
		registry:     registry,
		orchestrator: orchestrator,
		downloader:   downloader,
		artwork:      artwork,
	}
}

// EnrichArtist gathers provider metadata for one artist. The attempt stamp
// is always written, even when every provider comes back empty, so the
// artist leaves the pending set either way. Returns whether any provider
// data was stored.
func (e *Enricher) EnrichArtist(ctx context.Context, artist *database.Artist) (bool, error) {
	now := time.Now()
	fields := map[string]interface{}{
		"mbz_searched_at": &now,
	}

	mbid := artist.MbzArtistID
	if mbid == "" {
		mbid = e.resolveArtistMBID(ctx, artist.Name)
		if mbid != "" {
			fields["mbz_artist_id"] = mbid
		}
	}

	enriched := false

	if artist.Biography == "" {
		if bio := e.fetchBio(ctx, mbid, artist.Name); bio != nil {
			fields["biography"] = bio.Summary
			fields["biography_source"] = bio.Source
			if bio.URL != "" {
				fields["external_url"] = bio.URL
			}
			enriched = true
		}
	}

	if artist.SimilarArtists == "" {
		if similar := e.fetchSimilarArtists(ctx, mbid, artist.Name); similar != "" {
			fields["similar_artists"] = similar
			enriched = true
		}
	}
	if artist.Genres == "" {
		if genres := e.fetchTopTags(ctx, mbid, artist.Name); genres != "" {
			fields["genres"] = genres
			enriched = true
		}
	}

	if artist.ExternalImagePath == "" {
		if path := e.fetchArtistImage(ctx, artist.ID, mbid, artist.Name); path != "" {
			fields["external_image_path"] = path
			enriched = true
		}
	}

	if enriched {
		fields["external_info_updated_at"] = &now
	}

	if err := e.store.UpdateArtist(artist.ID, fields); err != nil {
		return enriched, err
	}
	if _, ok := fields["external_image_path"]; ok {
		e.artwork.InvalidateArtistImage(artist.ID)
	}
	return enriched, nil
}

// EnrichAlbum gathers provider metadata for one album. Like artists, the
// attempt stamp is written regardless of what the providers returned.
func (e *Enricher) EnrichAlbum(ctx context.Context, album *database.Album) (bool, error) {
	artistName := ""
	artistMBID := ""
	if artist, err := e.store.GetArtist(album.ArtistID); err == nil {
		artistName = artist.Name
		artistMBID = artist.MbzArtistID
	} else {
		logger.Warn("Album %s references unknown artist %s: %v", album.ID, album.ArtistID, err)
	}

	now := time.Now()
	fields := map[string]interface{}{
		"external_info_updated_at": &now,
	}

	mbid := album.MbzAlbumID
	if mbid == "" {
		mbid = e.resolveReleaseGroupMBID(ctx, artistMBID, album.Name)
		if mbid != "" {
			fields["mbz_album_id"] = mbid
		}
	}

	enriched := false

	if album.Description == "" {
		if description, source := e.fetchAlbumDescription(ctx, mbid, artistName, album.Name); description != "" {
			fields["description"] = description
			fields["description_source"] = source
			enriched = true
		}
	}

	if album.ExternalArtPath == "" {
		query := agents.AlbumCoverQuery{
			AlbumName:   album.Name,
			ArtistName:  artistName,
			MbzAlbumID:  mbid,
			MbzArtistID: artistMBID,
		}
		if path := e.fetchAlbumCover(ctx, album.ID, query); path != "" {
			fields["external_art_path"] = path
			enriched = true
		}
	}

	if err := e.store.UpdateAlbum(album.ID, fields); err != nil {
		return enriched, err
	}
	if _, ok := fields["external_art_path"]; ok {
		e.artwork.InvalidateAlbumCover(album.ID)
	}
	return enriched, nil
}

func (e *Enricher) resolveArtistMBID(ctx context.Context, name string) string {
	for _, resolver := range e.registry.MBIDResolvers() {
		mbid, err := resolver.SearchArtistMBID(ctx, name)
		if err != nil {
			logger.Warn("Artist MBID search failed for %q: %v", name, err)
			continue
		}
		if mbid != "" {
			return mbid
		}
	}
	return ""
}

func (e *Enricher) resolveReleaseGroupMBID(ctx context.Context, artistMBID, album string) string {
	for _, resolver := range e.registry.MBIDResolvers() {
		mbid, err := resolver.SearchReleaseGroupMBID(ctx, artistMBID, album)
		if err != nil {
			logger.Warn("Release group MBID search failed for %q: %v", album, err)
			continue
		}
		if mbid != "" {
			return mbid
		}
	}
	return ""
}

// fetchBio walks bio agents in priority order and takes the first hit
func (e *Enricher) fetchBio(ctx context.Context, mbid, name string) *agents.Bio {
	for _, agent := range e.registry.BioAgents() {
		bio, err := agent.GetBio(ctx, mbid, name)
		if err != nil {
			logger.Warn("Agent %s bio lookup failed for %q: %v", agent.Name(), name, err)
			continue
		}
		if bio != nil && bio.Summary != "" {
			return bio
		}
	}
	return nil
}

func (e *Enricher) fetchSimilarArtists(ctx context.Context, mbid, name string) string {
	for _, agent := range e.registry.AllAgents() {
		retriever, ok := agent.(similarArtistRetriever)
		if !ok || !agent.Enabled() {
			continue
		}
		similar, err := retriever.GetSimilarArtists(ctx, mbid, name)
		if err != nil {
			logger.Warn("Agent %s similar-artist lookup failed for %q: %v", agent.Name(), name, err)
			continue
		}
		if encoded := marshalNames(similar); encoded != "" {
			return encoded
		}
	}
	return ""
}

func (e *Enricher) fetchTopTags(ctx context.Context, mbid, name string) string {
	for _, agent := range e.registry.AllAgents() {
		retriever, ok := agent.(topTagRetriever)
		if !ok || !agent.Enabled() {
			continue
		}
		tags, err := retriever.GetTopTags(ctx, mbid, name)
		if err != nil {
			logger.Warn("Agent %s tag lookup failed for %q: %v", agent.Name(), name, err)
			continue
		}
		if encoded := marshalNames(tags); encoded != "" {
			return encoded
		}
	}
	return ""
}

func (e *Enricher) fetchAlbumDescription(ctx context.Context, mbid, artist, album string) (string, string) {
	for _, agent := range e.registry.AllAgents() {
		retriever, ok := agent.(albumDescriptionRetriever)
		if !ok || !agent.Enabled() {
			continue
		}
		description, err := retriever.GetAlbumDescription(ctx, mbid, artist, album)
		if err != nil {
			logger.Warn("Agent %s album description lookup failed for %q: %v", agent.Name(), album, err)
			continue
		}
		if description != "" {
			return description, agent.Name()
		}
	}
	return "", ""
}

// fetchArtistImage searches all providers, picks the best profile option,
// downloads it, and stores it in the artwork store.
func (e *Enricher) fetchArtistImage(ctx context.Context, artistID, mbid, name string) string {
	options := e.orchestrator.SearchArtistImages(ctx, agents.ArtistImageQuery{
		ArtistName:  name,
		MbzArtistID: mbid,
	})
	option := pickBestOption(options, agents.ImageProfile)
	if option == nil {
		return ""
	}

	data, mimeType, err := e.downloader.Download(ctx, option.URL)
	if err != nil {
		logger.Warn("Artist image download failed for %q: %v", name, err)
		return ""
	}
	path, err := e.artwork.SaveExternalArtistImage(artistID, data, mimeType)
	if err != nil {
		logger.Error("Failed to store artist image for %q: %v", name, err)
		return ""
	}
	return path
}

func (e *Enricher) fetchAlbumCover(ctx context.Context, albumID string, query agents.AlbumCoverQuery) string {
	options := e.orchestrator.SearchAlbumCovers(ctx, query)
	option := pickBestOption(options, agents.ImageCover)
	if option == nil {
		return ""
	}

	data, mimeType, err := e.downloader.Download(ctx, option.URL)
	if err != nil {
		logger.Warn("Album cover download failed for %q: %v", query.AlbumName, err)
		return ""
	}
	path, err := e.artwork.SaveExternalAlbumCover(albumID, data, mimeType)
	if err != nil {
		logger.Error("Failed to store album cover for %q: %v", query.AlbumName, err)
		return ""
	}
	return path
}

// pickBestOption prefers the largest option of the wanted type; options
// come in agent-priority order, so ties go to the preferred provider.
func pickBestOption(options []agents.ImageOption, wanted agents.ImageType) *agents.ImageOption {
	var best *agents.ImageOption
	for i := range options {
		option := &options[i]
		if option.Type != wanted {
			continue
		}
		if best == nil || option.Width*option.Height > best.Width*best.Height {
			best = option
		}
	}
	return best
}

func marshalNames(names []string) string {
	if len(names) == 0 {
		return ""
	}
	data, err := json.Marshal(names)
	if err != nil {
		return ""
	}
	return string(data)
}
