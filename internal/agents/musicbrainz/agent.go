package musicbrainz

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/harmonia/internal/agents"
	"github.com/mantonx/harmonia/internal/settings"
)

const (
	agentName = "musicbrainz"

	basePriority     = 1
	disabledPriority = basePriority + 100

	// MusicBrainz asks anonymous clients to stay at or under 1 req/s
	defaultRequestsPerSecond = 1.0

	// Search hits below this Lucene score are too fuzzy to trust
	minAcceptScore = 90
)

// RateLimitTuner is implemented by limiters whose pacing can be
// reconfigured at runtime
type RateLimitTuner interface {
	SetRateLimit(provider string, requestsPerSecond float64)
}

// Agent resolves catalog names to MusicBrainz ids. It is keyless; only
// the settings toggle gates it.
type Agent struct {
	client   *Client
	settings settings.Reader
	limiter  agents.RateLimiter
	logger   hclog.Logger

	mu      sync.RWMutex
	enabled bool
}

// NewAgent creates the MusicBrainz agent and loads its settings
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

// Enabled reports whether the settings toggle is on
func (a *Agent) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// ReloadSettings re-reads the toggle and rate limit
func (a *Agent) ReloadSettings() {
	enabled := a.settings.GetBool("agents.musicbrainz.enabled", true)

	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if tuner, ok := a.limiter.(RateLimitTuner); ok {
		tuner.SetRateLimit(agentName, a.settings.GetFloat("agents.musicbrainz.rps", defaultRequestsPerSecond))
	}
}

// SearchArtistMBID resolves an artist name to its MusicBrainz id. An
// empty id with a nil error means no confident match exists.
func (a *Agent) SearchArtistMBID(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return "", err
	}

	artists, err := a.client.SearchArtist(ctx, name)
	if err != nil {
		return "", err
	}

	for _, artist := range artists {
		if artist.Score >= minAcceptScore {
			a.logger.Debug("resolved artist", "name", name, "mbid", artist.ID, "score", artist.Score)
			return artist.ID, nil
		}
	}
	return "", nil
}

// SearchReleaseGroupMBID resolves an album title to its release-group id,
// scoped to the credited artist when its MBID is known.
func (a *Agent) SearchReleaseGroupMBID(ctx context.Context, artistMBID, album string) (string, error) {
	if album == "" {
		return "", nil
	}
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return "", err
	}

	groups, err := a.client.SearchReleaseGroup(ctx, artistMBID, album)
	if err != nil {
		return "", err
	}

	for _, group := range groups {
		if group.Score >= minAcceptScore {
			a.logger.Debug("resolved release group", "album", album, "mbid", group.ID, "score", group.Score)
			return group.ID, nil
		}
	}
	return "", nil
}
