package coverart

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/harmonia/internal/agents"
	"github.com/mantonx/harmonia/internal/settings"
)

const (
	agentName = "coverart"

	basePriority     = 1
	disabledPriority = basePriority + 100

	defaultRequestsPerSecond = 1.0
)

// The archive publishes thumbnails at these fixed edge lengths
var thumbnailSizes = []string{"250", "500", "1200"}

// The archive never reports the original's pixel dimensions, so options
// carry the largest documented thumbnail tier. Originals are at least
// this large, which keeps archive covers competitive when the best
// candidate is picked by area.
const coverEdgePixels = 1200

// RateLimitTuner is implemented by limiters whose pacing can be
// reconfigured at runtime
type RateLimitTuner interface {
	SetRateLimit(provider string, requestsPerSecond float64)
}

// Agent adapts the Cover Art Archive to the album-cover capability. The
// archive needs no API key, so only the settings toggle gates it.
type Agent struct {
	client   *Client
	settings settings.Reader
	limiter  agents.RateLimiter
	logger   hclog.Logger

	mu      sync.RWMutex
	enabled bool
}

// NewAgent creates the Cover Art Archive agent and loads its settings
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
	enabled := a.settings.GetBool("agents.coverart.enabled", true)

	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if tuner, ok := a.limiter.(RateLimitTuner); ok {
		tuner.SetRateLimit(agentName, a.settings.GetFloat("agents.coverart.rps", defaultRequestsPerSecond))
	}
}

// GetAlbumCover retrieves cover options for a release group. The archive
// is addressed purely by MusicBrainz id; without one there is nothing to
// look up.
func (a *Agent) GetAlbumCover(ctx context.Context, mbid, artist, album string) ([]agents.ImageOption, error) {
	if mbid == "" {
		return nil, nil
	}
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return nil, err
	}

	response, err := a.client.GetReleaseGroupCovers(ctx, mbid)
	if err != nil || response == nil {
		return nil, err
	}

	var options []agents.ImageOption
	for _, image := range response.Images {
		if image.URL == "" || !isFront(image) {
			continue
		}
		options = append(options, agents.ImageOption{
			Provider:     agentName,
			URL:          image.URL,
			ThumbnailURL: bestThumbnail(image.Thumbnails),
			Type:         agents.ImageCover,
			Width:        coverEdgePixels,
			Height:       coverEdgePixels,
		})
	}
	return options, nil
}

// isFront accepts images flagged front or typed "Front"; release groups
// with a single untyped image are accepted too.
func isFront(image Image) bool {
	if image.Front {
		return true
	}
	for _, t := range image.Types {
		if t == "Front" {
			return true
		}
	}
	return len(image.Types) == 0
}

func bestThumbnail(thumbnails map[string]string) string {
	for _, size := range thumbnailSizes {
		if url, ok := thumbnails[size]; ok && url != "" {
			return url
		}
	}
	return ""
}
