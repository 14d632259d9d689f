// Package wikipedia implements a keyless biography fallback using the
// Wikipedia REST summary API. It ranks after Last.fm because page titles
// are matched by name alone, which occasionally lands on the wrong topic.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/harmonia/internal/agents"
	"github.com/mantonx/harmonia/internal/settings"
)

const (
	agentName = "wikipedia"

	basePriority     = 4
	disabledPriority = basePriority + 100

	defaultRequestsPerSecond = 2.0

	// BaseURL is the Wikipedia REST API root
	BaseURL = "https://en.wikipedia.org/api/rest_v1"
)

// RateLimitTuner is implemented by limiters whose pacing can be
// reconfigured at runtime
type RateLimitTuner interface {
	SetRateLimit(provider string, requestsPerSecond float64)
}

// summary is the page summary payload; only what the bio needs is mapped
type summary struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Agent adapts the Wikipedia summary API to the bio capability
type Agent struct {
	settings   settings.Reader
	limiter    agents.RateLimiter
	logger     hclog.Logger
	httpClient *http.Client
	baseURL    string
	userAgent  string

	mu      sync.RWMutex
	enabled bool
}

// NewAgent creates the Wikipedia agent and loads its settings
func NewAgent(reader settings.Reader, limiter agents.RateLimiter, userAgent string, timeout time.Duration) *Agent {
	agent := &Agent{
		settings:   reader,
		limiter:    limiter,
		logger:     hclog.New(&hclog.LoggerOptions{Name: agentName}),
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    BaseURL,
		userAgent:  userAgent,
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
	enabled := a.settings.GetBool("agents.wikipedia.enabled", true)

	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if tuner, ok := a.limiter.(RateLimitTuner); ok {
		tuner.SetRateLimit(agentName, a.settings.GetFloat("agents.wikipedia.rps", defaultRequestsPerSecond))
	}
}

// GetBio fetches the page summary for the artist name. Disambiguation
// pages and missing pages yield (nil, nil).
func (a *Agent) GetBio(ctx context.Context, mbid, name string) (*agents.Bio, error) {
	if name == "" {
		return nil, nil
	}
	if err := a.limiter.WaitForRateLimit(ctx, agentName); err != nil {
		return nil, err
	}

	title := strings.ReplaceAll(name, " ", "_")
	endpoint := fmt.Sprintf("%s/page/summary/%s", a.baseURL, url.PathEscape(title))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, agents.NewAPIError(agentName, resp.StatusCode, endpoint)
	}

	var page summary
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if page.Type == "disambiguation" || page.Extract == "" {
		return nil, nil
	}
	return &agents.Bio{
		Summary: page.Extract,
		URL:     page.ContentURLs.Desktop.Page,
		Source:  agentName,
	}, nil
}
