// Package musicbrainz implements the MusicBrainz identifier resolver.
// MusicBrainz ids are the join key every other provider is addressed by,
// so this agent runs before any imagery or bio lookup.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/harmonia/internal/agents"
)

const (
	// BaseURL is the MusicBrainz WS/2 API root
	BaseURL = "https://musicbrainz.org/ws/2"

	searchLimit = 5
)

// Client handles communication with the MusicBrainz search API
type Client struct {
	logger     hclog.Logger
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a new MusicBrainz client. MusicBrainz requires a
// meaningful User-Agent and throttles anonymous ones hard.
func NewClient(logger hclog.Logger, userAgent string, timeout time.Duration) *Client {
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    BaseURL,
		userAgent:  userAgent,
	}
}

// SearchArtist runs a Lucene artist search and returns the hits
func (c *Client) SearchArtist(ctx context.Context, name string) ([]Artist, error) {
	query := fmt.Sprintf(`artist:%q`, name)

	var result artistSearchResult
	if err := c.search(ctx, "artist", query, &result); err != nil {
		return nil, err
	}
	return result.Artists, nil
}

// SearchReleaseGroup searches release groups by title, optionally scoped
// to a credited artist MBID.
func (c *Client) SearchReleaseGroup(ctx context.Context, artistMBID, title string) ([]ReleaseGroup, error) {
	query := fmt.Sprintf(`releasegroup:%q`, title)
	if artistMBID != "" {
		query += fmt.Sprintf(` AND arid:%s`, artistMBID)
	}

	var result releaseGroupSearchResult
	if err := c.search(ctx, "release-group", query, &result); err != nil {
		return nil, err
	}
	return result.ReleaseGroups, nil
}

func (c *Client) search(ctx context.Context, entity, query string, out interface{}) error {
	params := url.Values{}
	params.Set("query", query)
	params.Set("fmt", "json")
	params.Set("limit", fmt.Sprintf("%d", searchLimit))

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, entity, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return agents.NewAPIError("musicbrainz", resp.StatusCode, entity)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
