package musicbrainz

// Search responses from the MusicBrainz WS/2 API. Only the fields the
// resolver reads are mapped.

type artistSearchResult struct {
	Count   int      `json:"count"`
	Artists []Artist `json:"artists"`
}

// Artist is one artist search hit
type Artist struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SortName       string `json:"sort-name"`
	Score          int    `json:"score"`
	Type           string `json:"type"`
	Disambiguation string `json:"disambiguation"`
}

type releaseGroupSearchResult struct {
	Count         int            `json:"count"`
	ReleaseGroups []ReleaseGroup `json:"release-groups"`
}

// ReleaseGroup is one release-group search hit
type ReleaseGroup struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Score        int            `json:"score"`
	PrimaryType  string         `json:"primary-type"`
	ArtistCredit []ArtistCredit `json:"artist-credit"`
}

// ArtistCredit names one credited artist on a release group
type ArtistCredit struct {
	Name   string `json:"name"`
	Artist Artist `json:"artist"`
}
