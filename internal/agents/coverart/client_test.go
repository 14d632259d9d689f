package coverart

import (
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jarcoal/httpmock"
	"github.com/mantonx/harmonia/internal/agents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releaseGroupMBID = "65ac7f2a-0029-3ba3-bd23-d02acbbc9a0e"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client := NewClient(hclog.NewNullLogger(), "harmonia-test/1.0", 5*time.Second)
	httpmock.ActivateNonDefault(client.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func TestGetReleaseGroupCovers(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("GET", BaseURL+"/release-group/"+releaseGroupMBID,
		httpmock.NewStringResponder(200, `{
			"images": [
				{
					"image": "https://archive.example/front.jpg",
					"front": true,
					"types": ["Front"],
					"thumbnails": {"250": "https://archive.example/front-250.jpg", "500": "https://archive.example/front-500.jpg"}
				},
				{
					"image": "https://archive.example/back.jpg",
					"front": false,
					"types": ["Back"]
				}
			]
		}`))

	response, err := client.GetReleaseGroupCovers(context.Background(), releaseGroupMBID)
	require.NoError(t, err)
	require.NotNil(t, response)
	require.Len(t, response.Images, 2)
	assert.True(t, response.Images[0].Front)
}

func TestGetReleaseGroupCovers_NotFound(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("GET", BaseURL+"/release-group/"+releaseGroupMBID,
		httpmock.NewStringResponder(404, `Not Found`))

	response, err := client.GetReleaseGroupCovers(context.Background(), releaseGroupMBID)
	require.NoError(t, err)
	assert.Nil(t, response)
}

func TestGetReleaseGroupCovers_ServerError(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("GET", BaseURL+"/release-group/"+releaseGroupMBID,
		httpmock.NewStringResponder(502, `Bad Gateway`))

	_, err := client.GetReleaseGroupCovers(context.Background(), releaseGroupMBID)
	require.Error(t, err)
	assert.ErrorContains(t, err, "coverart")
}

func TestIsFront(t *testing.T) {
	assert.True(t, isFront(Image{Front: true}))
	assert.True(t, isFront(Image{Types: []string{"Front"}}))
	assert.True(t, isFront(Image{}))
	assert.False(t, isFront(Image{Types: []string{"Back"}}))
}

type noopLimiter struct{}

func (noopLimiter) WaitForRateLimit(ctx context.Context, provider string) error { return nil }

type staticSettings map[string]string

func (s staticSettings) GetString(key, def string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}
func (s staticSettings) GetBool(key string, def bool) bool {
	if v, ok := s[key]; ok {
		return v == "true"
	}
	return def
}
func (s staticSettings) GetInt(key string, def int) int       { return def }
func (s staticSettings) GetFloat(key string, def float64) float64 { return def }
func (s staticSettings) FirstString(keys []string, def string) string {
	for _, key := range keys {
		if v, ok := s[key]; ok {
			return v
		}
	}
	return def
}

func TestAgent_FiltersToFrontCovers(t *testing.T) {
	agent := NewAgent(staticSettings{}, noopLimiter{}, "harmonia-test/1.0", 5*time.Second)
	httpmock.ActivateNonDefault(agent.client.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("GET", BaseURL+"/release-group/"+releaseGroupMBID,
		httpmock.NewStringResponder(200, `{
			"images": [
				{"image": "https://archive.example/front.jpg", "front": true, "types": ["Front"], "thumbnails": {"500": "https://archive.example/front-500.jpg"}},
				{"image": "https://archive.example/back.jpg", "types": ["Back"]}
			]
		}`))

	options, err := agent.GetAlbumCover(context.Background(), releaseGroupMBID, "Queen", "Innuendo")
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "https://archive.example/front.jpg", options[0].URL)
	assert.Equal(t, "https://archive.example/front-500.jpg", options[0].ThumbnailURL)
	assert.Equal(t, agents.ImageCover, options[0].Type)

	// Options carry the documented thumbnail ceiling as dimensions, so
	// archive originals are not outranked by smaller fixed-size providers.
	assert.Equal(t, coverEdgePixels, options[0].Width)
	assert.Equal(t, coverEdgePixels, options[0].Height)
}

func TestAgent_SkipsLookupWithoutMBID(t *testing.T) {
	agent := NewAgent(staticSettings{}, noopLimiter{}, "harmonia-test/1.0", 5*time.Second)

	options, err := agent.GetAlbumCover(context.Background(), "", "Queen", "Innuendo")
	require.NoError(t, err)
	assert.Nil(t, options)
}
