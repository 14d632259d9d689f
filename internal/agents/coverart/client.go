// Package coverart implements the Cover Art Archive provider agent. The
// archive is keyless and serves album cover art for MusicBrainz release
// groups, so it is the highest-priority cover source.
package coverart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/harmonia/internal/agents"
)

// BaseURL is the Cover Art Archive API root
const BaseURL = "https://coverartarchive.org"

// Client handles communication with the Cover Art Archive
type Client struct {
	logger     hclog.Logger
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a new Cover Art Archive client
func NewClient(logger hclog.Logger, userAgent string, timeout time.Duration) *Client {
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    BaseURL,
		userAgent:  userAgent,
	}
}

// Image is one cover entry in an archive response
type Image struct {
	ID         json.Number       `json:"id"`
	URL        string            `json:"image"`
	Front      bool              `json:"front"`
	Back       bool              `json:"back"`
	Approved   bool              `json:"approved"`
	Types      []string          `json:"types"`
	Thumbnails map[string]string `json:"thumbnails"`
}

// Response is the release-group or release lookup payload
type Response struct {
	Images  []Image `json:"images"`
	Release string  `json:"release"`
}

// GetReleaseGroupCovers fetches cover art for a release group. Returns
// (nil, nil) when the archive has no art for it.
func (c *Client) GetReleaseGroupCovers(ctx context.Context, mbid string) (*Response, error) {
	return c.lookup(ctx, fmt.Sprintf("%s/release-group/%s", c.baseURL, mbid))
}

// GetReleaseCovers fetches cover art for a specific release
func (c *Client) GetReleaseCovers(ctx context.Context, mbid string) (*Response, error) {
	return c.lookup(ctx, fmt.Sprintf("%s/release/%s", c.baseURL, mbid))
}

func (c *Client) lookup(ctx context.Context, endpoint string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, agents.NewAPIError("coverart", resp.StatusCode, endpoint)
	}

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &response, nil
}
