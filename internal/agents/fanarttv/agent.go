package fanarttv

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/harmonia/internal/agents"
	"github.com/mantonx/harmonia/internal/settings"
)

const (
	agentName = "fanarttv"

	basePriority     = 3
	disabledPriority = basePriority + 100

	defaultRequestsPerSecond = 2.0
)

// Fanart.tv serves assets at fixed canonical dimensions per type; these
// are documented constants.
var assetDimensions = map[agents.ImageType][2]int{
	agents.ImageProfile:    {1000, 1000},
	agents.ImageBackground: {1920, 1080},
	agents.ImageBanner:     {1000, 185},
	agents.ImageLogo:       {800, 310},
	agents.ImageCover:      {1000, 1000},
}

// RateLimitTuner is implemented by limiters whose pacing can be
// reconfigured at runtime
type RateLimitTuner interface {
	SetRateLimit(provider string, requestsPerSecond float64)
}

// Agent adapts Fanart.tv to the artist-image and album-cover capabilities,
// plus the exhaustive all-assets variant call.
type Agent struct {
	client   *Client
	settings settings.Reader
	limiter  agents.RateLimiter
	logger   hclog.Logger

	mu      sync.RWMutex
	apiKey  string
	enabled bool
}

// NewAgent creates the Fanart.tv agent and loads its settings
func NewAgent(reader settings.Reader, limiter agents.RateLimiter, userAgent string, timeout time.Duration) *Agent {
	logger := hclog.New(&hclog.LoggerOptions{Name: agentName})
	agent := &Agent{
		client:   NewClient(logger, userAgent, timeout),
		settings: reader,
		limiter:  limiter,
		logger:   logger,
	}
	agent.ReloadSettings()
	return agent
}

// Name returns the agent identity
func (a *Agent) Name() string { return agentName }

// Priority sorts the agent among its peers; disabled agents sort last
func (a *Agent) Priority() int {
	if !a.Enabled() {
		return disabledPriority
	}
	return basePriority
}

// Enabled requires both the settings toggle and a configured API key
func (a *Agent) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled && a.apiKey != ""
}

// ReloadSettings re-reads the API key and toggle, accepting both the
// current and the legacy settings namespaces.
func (a *Agent) ReloadSettings() {
	apiKey := a.settings.FirstString([]string{"agents.fanarttv.apikey", "fanart.apikey"}, "")
	enabled := a.settings.GetBool("agents.fanarttv.enabled", true)

	a.mu.Lock()
	a.apiKey = apiKey
	a.enabled = enabled
	a.mu.Unlock()

	if tuner, ok := a.limiter.(RateLimitTuner); ok {
		tuner.SetRateLimit(agentName, a.settings.GetFloat("agents.fanarttv.rps", defaultRequestsPerSecond))
	}
}

func (a *Agent) key() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.apiKey
}

// GetAllArtistImages returns every asset Fanart.tv holds for the artist,
// all types in one response. This is the variant call the orchestrator
// prefers over GetArtistImages.
func (a *Agent) GetAllArtistImages(ctx context.Context, mbid string) ([]agents.ImageOption, error) {
	if mbid == "" {
		return nil, nil
	}
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return nil, err
	}

	response, err := a.client.GetArtistImages(ctx, a.key(), mbid)
	if err != nil || response == nil {
		return nil, err
	}

	var options []agents.ImageOption
	options = appendOptions(options, response.ArtistThumbs, agents.ImageProfile)
	options = appendOptions(options, response.ArtistBackgrounds, agents.ImageBackground)
	options = appendOptions(options, response.MusicBanners, agents.ImageBanner)
	options = appendOptions(options, response.HDMusicLogos, agents.ImageLogo)
	options = appendOptions(options, response.MusicLogos, agents.ImageLogo)
	return options, nil
}

// GetArtistImages returns only the profile images, the narrow capability
// contract. Fanart.tv cannot search by name, so no MBID means no result.
func (a *Agent) GetArtistImages(ctx context.Context, mbid, name string) ([]agents.ImageOption, error) {
	if mbid == "" {
		return nil, nil
	}
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return nil, err
	}

	response, err := a.client.GetArtistImages(ctx, a.key(), mbid)
	if err != nil || response == nil {
		return nil, err
	}
	return appendOptions(nil, response.ArtistThumbs, agents.ImageProfile), nil
}

// GetAlbumCover returns cover options for a release group by MBID
func (a *Agent) GetAlbumCover(ctx context.Context, mbid, artist, album string) ([]agents.ImageOption, error) {
	if mbid == "" {
		return nil, nil
	}
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return nil, err
	}

	response, err := a.client.GetAlbumImages(ctx, a.key(), mbid)
	if err != nil || response == nil {
		return nil, err
	}

	var options []agents.ImageOption
	for _, artwork := range response.Albums {
		options = appendOptions(options, artwork.AlbumCovers, agents.ImageCover)
	}
	return options, nil
}

func appendOptions(options []agents.ImageOption, images []Image, imageType agents.ImageType) []agents.ImageOption {
	dims := assetDimensions[imageType]
	for _, image := range images {
		if image.URL == "" {
			continue
		}
		options = append(options, agents.ImageOption{
			Provider:     agentName,
			URL:          image.URL,
			ThumbnailURL: PreviewURL(image.URL),
			Type:         imageType,
			Width:        dims[0],
			Height:       dims[1],
		})
	}
	return options
}
