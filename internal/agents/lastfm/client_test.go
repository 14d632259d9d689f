package lastfm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jarcoal/httpmock"
	"github.com/mantonx/harmonia/internal/agents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client := NewClient(hclog.NewNullLogger(), "harmonia-test/1.0", 5*time.Second)
	httpmock.ActivateNonDefault(client.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func TestGetArtistInfo(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("GET", BaseURL,
		httpmock.NewStringResponder(200, `{
			"artist": {
				"name": "Queen",
				"url": "https://www.last.fm/music/Queen",
				"bio": {"summary": "Queen are a British rock band. <a href=\"https://www.last.fm/music/Queen\">Read more</a>"},
				"similar": {"artist": [{"name": "Freddie Mercury"}, {"name": "David Bowie"}]},
				"tags": {"tag": [{"name": "rock"}, {"name": "classic rock"}]}
			}
		}`))

	info, err := client.GetArtistInfo(context.Background(), "key", "", "Queen")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Queen", info.Artist.Name)
	assert.Len(t, info.Artist.Similar.Artists, 2)
	assert.Len(t, info.Artist.Tags.Tags, 2)
}

func TestGetArtistInfo_NotFound(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("GET", BaseURL,
		httpmock.NewStringResponder(200, `{"error": 6, "message": "The artist you supplied could not be found"}`))

	info, err := client.GetArtistInfo(context.Background(), "key", "", "zzzzz-no-such-artist")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestGetArtistInfo_ServerError(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("GET", BaseURL,
		httpmock.NewStringResponder(503, `Service Unavailable`))

	info, err := client.GetArtistInfo(context.Background(), "key", "", "Queen")
	require.Error(t, err)
	assert.Nil(t, info)

	var apiErr *agents.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "lastfm", apiErr.Provider)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestGetAlbumInfo(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("GET", BaseURL,
		httpmock.NewStringResponder(200, `{
			"album": {
				"name": "Innuendo",
				"image": [
					{"#text": "https://img.example/small.jpg", "size": "small"},
					{"#text": "https://img.example/mega.jpg", "size": "mega"}
				],
				"wiki": {"summary": "Innuendo is the fourteenth studio album."}
			}
		}`))

	info, err := client.GetAlbumInfo(context.Background(), "key", "", "Queen", "Innuendo")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Innuendo", info.Album.Name)
	require.Len(t, info.Album.Images, 2)
	assert.Equal(t, "mega", info.Album.Images[1].Size)
}

func TestCleanBioText(t *testing.T) {
	text := `Queen are a British rock band. <a href="https://www.last.fm/music/Queen">Read more on Last.fm</a>`
	assert.Equal(t, "Queen are a British rock band.", cleanBioText(text))
	assert.Equal(t, "plain text", cleanBioText("plain text"))
	assert.Equal(t, "", cleanBioText(""))
}
