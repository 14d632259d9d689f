package agents

import (
	"context"
	"sync"
	"time"

	"github.com/mantonx/harmonia/internal/logger"
)

// defaultSearchTimeout bounds each individual provider call so one hanging
// provider cannot stall a whole search. Independent of rate-limit waits.
const defaultSearchTimeout = 5 * time.Second

// ArtistImageQuery identifies the artist to search images for
type ArtistImageQuery struct {
	ArtistName  string `json:"artist_name"`
	MbzArtistID string `json:"mbz_artist_id,omitempty"`
}

// AlbumCoverQuery identifies the album to search covers for
type AlbumCoverQuery struct {
	AlbumName   string `json:"album_name"`
	ArtistName  string `json:"artist_name"`
	MbzAlbumID  string `json:"mbz_album_id,omitempty"`
	MbzArtistID string `json:"mbz_artist_id,omitempty"`
}

// Orchestrator fans an image search out to every capable, enabled agent
// concurrently and merges the results. It is a pure, repeatable function
// over current provider state: no caching, no persistence.
type Orchestrator struct {
	registry *Registry
	timeout  time.Duration
}

// NewOrchestrator creates an orchestrator over the given registry
func NewOrchestrator(registry *Registry) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		timeout:  defaultSearchTimeout,
	}
}

// SearchArtistImages queries all artist-image agents in parallel and
// returns deduplicated options in agent-priority order. A failing agent
// only loses its own contribution.
func (o *Orchestrator) SearchArtistImages(ctx context.Context, query ArtistImageQuery) []ImageOption {
	searchers := o.registry.ArtistImageAgents()
	perAgent := make([][]ImageOption, len(searchers))

	var wg sync.WaitGroup
	for i, agent := range searchers {
		wg.Add(1)
		go func(i int, agent ArtistImageAgent) {
			defer wg.Done()
			perAgent[i] = o.queryArtistImages(ctx, agent, query)
		}(i, agent)
	}
	wg.Wait()

	return dedupeByURL(perAgent)
}

// queryArtistImages runs one agent's search, preferring the exhaustive
// variant call when the agent exposes one and it returns results.
func (o *Orchestrator) queryArtistImages(ctx context.Context, agent ArtistImageAgent, query ArtistImageQuery) []ImageOption {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if variant, ok := agent.(ArtistImageVariantRetriever); ok && query.MbzArtistID != "" {
		options, err := variant.GetAllArtistImages(callCtx, query.MbzArtistID)
		if err != nil {
			logger.Warn("Agent %s variant image search failed for %q: %v", agent.Name(), query.ArtistName, err)
		} else if len(options) > 0 {
			return options
		}
		// Empty variant response falls through to the standard call.
	}

	options, err := agent.GetArtistImages(callCtx, query.MbzArtistID, query.ArtistName)
	if err != nil {
		logger.Warn("Agent %s artist image search failed for %q: %v", agent.Name(), query.ArtistName, err)
		return nil
	}
	return options
}

// SearchAlbumCovers queries all album-cover agents in parallel and returns
// deduplicated options in agent-priority order.
func (o *Orchestrator) SearchAlbumCovers(ctx context.Context, query AlbumCoverQuery) []ImageOption {
	searchers := o.registry.AlbumCoverAgents()
	perAgent := make([][]ImageOption, len(searchers))

	var wg sync.WaitGroup
	for i, agent := range searchers {
		wg.Add(1)
		go func(i int, agent AlbumCoverAgent) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			options, err := agent.GetAlbumCover(callCtx, query.MbzAlbumID, query.ArtistName, query.AlbumName)
			if err != nil {
				logger.Warn("Agent %s cover search failed for %q / %q: %v",
					agent.Name(), query.ArtistName, query.AlbumName, err)
				return
			}
			perAgent[i] = options
		}(i, agent)
	}
	wg.Wait()

	return dedupeByURL(perAgent)
}

// dedupeByURL flattens per-agent result slices preserving agent priority
// order, keeping the first occurrence of each exact URL.
func dedupeByURL(perAgent [][]ImageOption) []ImageOption {
	seen := make(map[string]struct{})
	var merged []ImageOption
	for _, options := range perAgent {
		for _, option := range options {
			if option.URL == "" {
				continue
			}
			if _, dup := seen[option.URL]; dup {
				continue
			}
			seen[option.URL] = struct{}{}
			merged = append(merged, option)
		}
	}
	return merged
}
