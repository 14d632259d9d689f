// Package fanarttv implements the Fanart.tv provider agent. Fanart.tv is
// the one provider whose API returns every asset of every type for an
// artist, keyed by MusicBrainz id, in a single response; the agent exposes
// that through the variant-retriever interface.
package fanarttv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/harmonia/internal/agents"
)

// BaseURL is the Fanart.tv API root
const BaseURL = "https://webservice.fanart.tv/v3"

// Client handles communication with the Fanart.tv API
type Client struct {
	logger     hclog.Logger
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a new Fanart.tv API client
func NewClient(logger hclog.Logger, userAgent string, timeout time.Duration) *Client {
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    BaseURL,
		userAgent:  userAgent,
	}
}

// Image is one asset entry in a Fanart.tv response
type Image struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Likes string `json:"likes"`
}

// ArtistResponse is the /music/{mbid} response: all assets for one artist
type ArtistResponse struct {
	Name              string                   `json:"name"`
	MBID              string                   `json:"mbid_id"`
	ArtistThumbs      []Image                  `json:"artistthumb"`
	ArtistBackgrounds []Image                  `json:"artistbackground"`
	MusicBanners      []Image                  `json:"musicbanner"`
	HDMusicLogos      []Image                  `json:"hdmusiclogo"`
	MusicLogos        []Image                  `json:"musiclogo"`
	Albums            map[string]AlbumArtwork  `json:"albums"`
}

// AlbumArtwork holds the cover assets of one release group
type AlbumArtwork struct {
	AlbumCovers []Image `json:"albumcover"`
	CDArts      []Image `json:"cdart"`
}

// AlbumResponse is the /music/albums/{mbid} response
type AlbumResponse struct {
	Name   string                  `json:"name"`
	MBID   string                  `json:"mbid_id"`
	Albums map[string]AlbumArtwork `json:"albums"`
}

// GetArtistImages fetches all assets for an artist by MusicBrainz id.
// Returns (nil, nil) when Fanart.tv has nothing for the artist.
func (c *Client) GetArtistImages(ctx context.Context, apiKey, mbid string) (*ArtistResponse, error) {
	endpoint := fmt.Sprintf("%s/music/%s", c.baseURL, mbid)

	var response ArtistResponse
	found, err := c.get(ctx, endpoint, apiKey, &response)
	if err != nil || !found {
		return nil, err
	}
	return &response, nil
}

// GetAlbumImages fetches cover assets for a release group by MusicBrainz id
func (c *Client) GetAlbumImages(ctx context.Context, apiKey, mbid string) (*AlbumResponse, error) {
	endpoint := fmt.Sprintf("%s/music/albums/%s", c.baseURL, mbid)

	var response AlbumResponse
	found, err := c.get(ctx, endpoint, apiKey, &response)
	if err != nil || !found {
		return nil, err
	}
	return &response, nil
}

func (c *Client) get(ctx context.Context, endpoint, apiKey string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, agents.NewAPIError("fanarttv", resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to parse response: %w", err)
	}
	return true, nil
}

// PreviewURL derives Fanart.tv's documented preview variant of an asset URL
func PreviewURL(assetURL string) string {
	return strings.Replace(assetURL, "/fanart/", "/preview/", 1)
}
