// Package lastfm implements the Last.fm provider agent: artist biographies,
// album descriptions and covers, similar artists, and top tags.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/harmonia/internal/agents"
)

const (
	// BaseURL is the Last.fm API root
	BaseURL = "https://ws.audioscrobbler.com/2.0/"

	// Last.fm error code for "artist/album not found"
	errCodeNotFound = 6
)

// Client handles communication with the Last.fm API
type Client struct {
	logger     hclog.Logger
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a new Last.fm API client
func NewClient(logger hclog.Logger, userAgent string, timeout time.Duration) *Client {
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    BaseURL,
		userAgent:  userAgent,
	}
}

// apiError is the JSON error envelope Last.fm returns with 2xx statuses
type apiError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

// ArtistInfo is the artist.getinfo response payload
type ArtistInfo struct {
	Artist struct {
		Name string `json:"name"`
		MBID string `json:"mbid"`
		URL  string `json:"url"`
		Bio  struct {
			Summary string `json:"summary"`
			Content string `json:"content"`
		} `json:"bio"`
		Similar struct {
			Artists []struct {
				Name string `json:"name"`
				URL  string `json:"url"`
			} `json:"artist"`
		} `json:"similar"`
		Tags struct {
			Tags []struct {
				Name string `json:"name"`
			} `json:"tag"`
		} `json:"tags"`
	} `json:"artist"`
}

// AlbumInfo is the album.getinfo response payload
type AlbumInfo struct {
	Album struct {
		Name   string `json:"name"`
		MBID   string `json:"mbid"`
		URL    string `json:"url"`
		Images []struct {
			URL  string `json:"#text"`
			Size string `json:"size"`
		} `json:"image"`
		Wiki struct {
			Summary string `json:"summary"`
			Content string `json:"content"`
		} `json:"wiki"`
	} `json:"album"`
}

// GetArtistInfo fetches artist.getinfo. Returns (nil, nil) when Last.fm
// reports the artist as unknown.
func (c *Client) GetArtistInfo(ctx context.Context, apiKey, mbid, name string) (*ArtistInfo, error) {
	params := url.Values{}
	params.Set("method", "artist.getinfo")
	if mbid != "" {
		params.Set("mbid", mbid)
	} else {
		params.Set("artist", name)
	}

	var info ArtistInfo
	found, err := c.get(ctx, apiKey, params, &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

// GetAlbumInfo fetches album.getinfo. Returns (nil, nil) when unknown.
func (c *Client) GetAlbumInfo(ctx context.Context, apiKey, mbid, artist, album string) (*AlbumInfo, error) {
	params := url.Values{}
	params.Set("method", "album.getinfo")
	if mbid != "" {
		params.Set("mbid", mbid)
	} else {
		params.Set("artist", artist)
		params.Set("album", album)
	}

	var info AlbumInfo
	found, err := c.get(ctx, apiKey, params, &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

// get performs a Last.fm API call and decodes the response into out.
// The boolean reports whether the entity was found.
func (c *Client) get(ctx context.Context, apiKey string, params url.Values, out interface{}) (bool, error) {
	params.Set("api_key", apiKey)
	params.Set("format", "json")
	params.Set("autocorrect", "1")

	endpoint := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, agents.NewAPIError("lastfm", resp.StatusCode, params.Get("method"))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	// Last.fm reports application errors with a 2xx status and an error
	// envelope in the body.
	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Code != 0 {
		if envelope.Code == errCodeNotFound {
			return false, nil
		}
		c.logger.Warn("Last.fm API error", "code", envelope.Code, "message", envelope.Message)
		return false, agents.NewAPIError("lastfm", resp.StatusCode, params.Get("method"))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to parse response: %w", err)
	}
	return true, nil
}
