package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchArtistImages_DeduplicatesByURL(t *testing.T) {
	shared := ImageOption{Provider: "fanarttv", URL: "https://img.example/artist.jpg", Type: ImageProfile}

	registry := NewRegistry()
	registry.Register(&stubAgent{name: "fanarttv", priority: 1, enabled: true,
		images: []ImageOption{shared}})
	registry.Register(&stubAgent{name: "lastfm", priority: 2, enabled: true,
		images: []ImageOption{
			{Provider: "lastfm", URL: "https://img.example/artist.jpg", Type: ImageProfile},
			{Provider: "lastfm", URL: "https://img.example/other.jpg", Type: ImageProfile},
		}})

	options := NewOrchestrator(registry).SearchArtistImages(context.Background(),
		ArtistImageQuery{ArtistName: "Queen"})

	require.Len(t, options, 2)
	// First-seen entry wins, and agent priority ordering is preserved.
	assert.Equal(t, "fanarttv", options[0].Provider)
	assert.Equal(t, "https://img.example/artist.jpg", options[0].URL)
	assert.Equal(t, "https://img.example/other.jpg", options[1].URL)
}

func TestSearchAlbumCovers_ToleratesPartialFailure(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubAgent{name: "coverart", priority: 1, enabled: true,
		coversErr: NewAPIError("coverart", 503, "/release/xyz")})
	registry.Register(&stubAgent{name: "fanarttv", priority: 2, enabled: true,
		covers: []ImageOption{{Provider: "fanarttv", URL: "https://img.example/cover.jpg", Type: ImageCover}}})

	options := NewOrchestrator(registry).SearchAlbumCovers(context.Background(),
		AlbumCoverQuery{ArtistName: "Queen", AlbumName: "Innuendo"})

	require.Len(t, options, 1)
	assert.Equal(t, "fanarttv", options[0].Provider)
}

func TestSearchArtistImages_PrefersVariantCall(t *testing.T) {
	agent := &variantAgent{
		stubAgent: stubAgent{name: "fanarttv", priority: 1, enabled: true,
			images: []ImageOption{{Provider: "fanarttv", URL: "https://img.example/single.jpg", Type: ImageProfile}}},
		variants: []ImageOption{
			{Provider: "fanarttv", URL: "https://img.example/profile.jpg", Type: ImageProfile},
			{Provider: "fanarttv", URL: "https://img.example/bg.jpg", Type: ImageBackground},
		},
	}

	registry := NewRegistry()
	registry.Register(agent)

	options := NewOrchestrator(registry).SearchArtistImages(context.Background(),
		ArtistImageQuery{ArtistName: "Queen", MbzArtistID: "0383dadf-2a4e-4d10-a46a-e9e041da8eb3"})

	require.Len(t, options, 2)
	assert.Equal(t, ImageBackground, options[1].Type)
}

func TestSearchArtistImages_VariantFallsBackWhenEmpty(t *testing.T) {
	agent := &variantAgent{
		stubAgent: stubAgent{name: "fanarttv", priority: 1, enabled: true,
			images: []ImageOption{{Provider: "fanarttv", URL: "https://img.example/single.jpg", Type: ImageProfile}}},
		variantErr: errors.New("timeout"),
	}

	registry := NewRegistry()
	registry.Register(agent)

	options := NewOrchestrator(registry).SearchArtistImages(context.Background(),
		ArtistImageQuery{ArtistName: "Queen", MbzArtistID: "0383dadf-2a4e-4d10-a46a-e9e041da8eb3"})

	require.Len(t, options, 1)
	assert.Equal(t, "https://img.example/single.jpg", options[0].URL)
}

func TestSearchArtistImages_SkipsVariantWithoutMBID(t *testing.T) {
	agent := &variantAgent{
		stubAgent: stubAgent{name: "fanarttv", priority: 1, enabled: true,
			images: []ImageOption{{Provider: "fanarttv", URL: "https://img.example/byname.jpg", Type: ImageProfile}}},
		variants: []ImageOption{{Provider: "fanarttv", URL: "https://img.example/bymbid.jpg", Type: ImageProfile}},
	}

	registry := NewRegistry()
	registry.Register(agent)

	options := NewOrchestrator(registry).SearchArtistImages(context.Background(),
		ArtistImageQuery{ArtistName: "Queen"})

	require.Len(t, options, 1)
	assert.Equal(t, "https://img.example/byname.jpg", options[0].URL)
}

func TestSearchArtistImages_NoAgents(t *testing.T) {
	registry := NewRegistry()
	options := NewOrchestrator(registry).SearchArtistImages(context.Background(),
		ArtistImageQuery{ArtistName: "Queen"})
	assert.Empty(t, options)
}
