// Package agents defines the provider-agent contracts, the agent registry,
// and the parallel image-search orchestrator. Each external metadata
// provider (Last.fm, Fanart.tv, Cover Art Archive, MusicBrainz, Wikipedia)
// is wrapped in an agent that implements zero or more narrow capability
// interfaces; everything above this package talks capabilities, not
// providers.
package agents

import (
	"context"
	"fmt"
)

// ImageType classifies an image option returned by a provider
type ImageType string

const (
	ImageProfile    ImageType = "profile"
	ImageBackground ImageType = "background"
	ImageBanner     ImageType = "banner"
	ImageLogo       ImageType = "logo"
	ImageCover      ImageType = "cover"
)

// ImageOption is one candidate image produced by a search. Options are
// transient: the caller picks one and downloads it, they are never stored.
type ImageOption struct {
	Provider     string    `json:"provider"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Type         ImageType `json:"type"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Size         int64     `json:"size,omitempty"`
}

// Bio is a retrieved artist biography
type Bio struct {
	Summary string `json:"summary"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
	Source  string `json:"source"`
}

// Agent is the identity every provider agent carries. Priority sorts
// ascending (lower = preferred); disabled agents typically self-assign a
// late priority so they sort last if they show up anywhere.
type Agent interface {
	Name() string
	Priority() int
	Enabled() bool

	// ReloadSettings re-reads API keys and toggles from the settings
	// store, e.g. after an admin saved a new key.
	ReloadSettings()
}

// BioRetriever fetches an artist biography. A nil result with a nil error
// means the provider has nothing for this artist.
type BioRetriever interface {
	GetBio(ctx context.Context, mbid, name string) (*Bio, error)
}

// ArtistImageRetriever fetches artist imagery (profile, background, …)
type ArtistImageRetriever interface {
	GetArtistImages(ctx context.Context, mbid, name string) ([]ImageOption, error)
}

// AlbumCoverRetriever fetches album cover options
type AlbumCoverRetriever interface {
	GetAlbumCover(ctx context.Context, mbid, artist, album string) ([]ImageOption, error)
}

// ArtistImageVariantRetriever is the optional richer interface exposed by
// providers whose API returns every asset of every type keyed by
// MusicBrainz id in a single call. The orchestrator probes for it and
// prefers it over the per-type calls when it yields results.
type ArtistImageVariantRetriever interface {
	GetAllArtistImages(ctx context.Context, mbid string) ([]ImageOption, error)
}

// MBIDResolver resolves catalog names to MusicBrainz identifiers
type MBIDResolver interface {
	SearchArtistMBID(ctx context.Context, name string) (string, error)
	SearchReleaseGroupMBID(ctx context.Context, artistMBID, album string) (string, error)
}

// Combined capability views handed out by the registry
type BioAgent interface {
	Agent
	BioRetriever
}

type ArtistImageAgent interface {
	Agent
	ArtistImageRetriever
}

type AlbumCoverAgent interface {
	Agent
	AlbumCoverRetriever
}

// RateLimiter is the pacing dependency injected into every agent
type RateLimiter interface {
	WaitForRateLimit(ctx context.Context, provider string) error
}

// APIError is a non-2xx, non-404 provider response. Agents surface it so
// callers can tell a hard provider failure from "nothing found" (which is
// reported as a nil result without an error).
type APIError struct {
	Provider   string
	StatusCode int
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: status %d from %s", e.Provider, e.StatusCode, e.Endpoint)
}

// NewAPIError creates an APIError for the given provider response
func NewAPIError(provider string, statusCode int, endpoint string) *APIError {
	return &APIError{Provider: provider, StatusCode: statusCode, Endpoint: endpoint}
}
