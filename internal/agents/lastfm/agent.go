package lastfm

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/harmonia/internal/agents"
	"github.com/mantonx/harmonia/internal/settings"
)

const (
	agentName = "lastfm"

	basePriority = 2
	// Disabled agents sort after every enabled one
	disabledPriority = basePriority + 100

	defaultRequestsPerSecond = 1.0
)

// Last.fm publishes fixed square sizes per named image tier; these are
// documented constants, not byte inspection.
var imageSizes = map[string]int{
	"small":      34,
	"medium":     64,
	"large":      174,
	"extralarge": 300,
	"mega":       600,
}

// Agent adapts the Last.fm API to the bio and album-cover capabilities.
// It also exposes similar-artist and top-tag lookups, which have no
// capability contract because no other provider offers them.
type Agent struct {
	client   *Client
	settings settings.Reader
	limiter  agents.RateLimiter
	logger   hclog.Logger

	mu      sync.RWMutex
	apiKey  string
	enabled bool
}

// RateLimitTuner is implemented by limiters whose pacing can be
// reconfigured at runtime
type RateLimitTuner interface {
	SetRateLimit(provider string, requestsPerSecond float64)
}

// NewAgent creates the Last.fm agent and loads its settings
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

// Enabled reports whether the agent may be used: the settings toggle must
// be on and an API key must be configured.
func (a *Agent) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled && a.apiKey != ""
}

// ReloadSettings re-reads the API key and toggle, accepting both the
// current and the legacy settings namespaces.
func (a *Agent) ReloadSettings() {
	apiKey := a.settings.FirstString([]string{"agents.lastfm.apikey", "lastfm.apikey"}, "")
	enabled := a.settings.GetBool("agents.lastfm.enabled", true)

	a.mu.Lock()
	a.apiKey = apiKey
	a.enabled = enabled
	a.mu.Unlock()

	if tuner, ok := a.limiter.(RateLimitTuner); ok {
		tuner.SetRateLimit(agentName, a.settings.GetFloat("agents.lastfm.rps", defaultRequestsPerSecond))
	}
}

func (a *Agent) key() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.apiKey
}

// GetBio retrieves the artist biography
func (a *Agent) GetBio(ctx context.Context, mbid, name string) (*agents.Bio, error) {
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return nil, err
	}

	info, err := a.client.GetArtistInfo(ctx, a.key(), mbid, name)
	if err != nil || info == nil {
		return nil, err
	}

	summary := cleanBioText(info.Artist.Bio.Summary)
	if summary == "" {
		return nil, nil
	}
	return &agents.Bio{
		Summary: summary,
		Content: cleanBioText(info.Artist.Bio.Content),
		URL:     info.Artist.URL,
		Source:  agentName,
	}, nil
}

// GetAlbumCover retrieves cover options from album.getinfo
func (a *Agent) GetAlbumCover(ctx context.Context, mbid, artist, album string) ([]agents.ImageOption, error) {
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return nil, err
	}

	info, err := a.client.GetAlbumInfo(ctx, a.key(), mbid, artist, album)
	if err != nil || info == nil {
		return nil, err
	}

	var options []agents.ImageOption
	for _, image := range info.Album.Images {
		if image.URL == "" {
			continue
		}
		size := imageSizes[image.Size]
		options = append(options, agents.ImageOption{
			Provider: agentName,
			URL:      image.URL,
			Type:     agents.ImageCover,
			Width:    size,
			Height:   size,
		})
	}
	return options, nil
}

// GetAlbumDescription returns the album wiki summary, or empty when absent
func (a *Agent) GetAlbumDescription(ctx context.Context, mbid, artist, album string) (string, error) {
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return "", err
	}

	info, err := a.client.GetAlbumInfo(ctx, a.key(), mbid, artist, album)
	if err != nil || info == nil {
		return "", err
	}
	return cleanBioText(info.Album.Wiki.Summary), nil
}

// GetSimilarArtists returns similar artist names from artist.getinfo
func (a *Agent) GetSimilarArtists(ctx context.Context, mbid, name string) ([]string, error) {
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return nil, err
	}

	info, err := a.client.GetArtistInfo(ctx, a.key(), mbid, name)
	if err != nil || info == nil {
		return nil, err
	}

	var similar []string
	for _, artist := range info.Artist.Similar.Artists {
		similar = append(similar, artist.Name)
	}
	return similar, nil
}

// GetTopTags returns the artist's tag names from artist.getinfo
func (a *Agent) GetTopTags(ctx context.Context, mbid, name string) ([]string, error) {
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return nil, err
	}

	info, err := a.client.GetArtistInfo(ctx, a.key(), mbid, name)
	if err != nil || info == nil {
		return nil, err
	}

	var tags []string
	for _, tag := range info.Artist.Tags.Tags {
		tags = append(tags, tag.Name)
	}
	return tags, nil
}

// cleanBioText strips the "Read more on Last.fm" boilerplate link that
// Last.fm appends to bio fields.
func cleanBioText(text string) string {
	if idx := strings.Index(text, `<a href="https://www.last.fm`); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
