package enrichmentmodule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mantonx/harmonia/internal/catalog"
	"github.com/mantonx/harmonia/internal/database"
	"github.com/mantonx/harmonia/internal/events"
	"github.com/mantonx/harmonia/internal/logger"
	"github.com/mantonx/harmonia/internal/settings"
)

const (
	// Exponential moving average over item durations, seeded before the
	// first item completes.
	emaSeedMillis = 5000.0
	emaAlpha      = 0.5

	// Pause between items so enrichment stays a background citizen of the
	// providers' rate budgets. Admin-tunable down to the floor.
	defaultDelayMillis = 3000
	minDelayMillis     = 1000

	delaySettingKey = "enrichment.delay_ms"
)

// entityEnricher is what the queue drives; satisfied by *Enricher
type entityEnricher interface {
	EnrichArtist(ctx context.Context, artist *database.Artist) (bool, error)
	EnrichAlbum(ctx context.Context, album *database.Album) (bool, error)
}

// Stats is a live snapshot of queue progress. Pending counts are
// recomputed from the catalog on every call, never cached.
type Stats struct {
	Running        bool       `json:"running"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CurrentItem    string     `json:"current_item,omitempty"`
	PendingArtists int64      `json:"pending_artists"`
	PendingAlbums  int64      `json:"pending_albums"`
	Processed      int        `json:"processed"`
	Errors         int        `json:"errors"`
	AvgItemMillis  float64    `json:"avg_item_ms"`
	ETA            string     `json:"eta,omitempty"`
}

// Queue works through the pending catalog one entity at a time: all
// pending artists first, then albums, newest first within each. A single
// run loop is ever in flight; Start while running is a no-op.
type Queue struct {
	store    catalog.Store
	enricher entityEnricher
	settings settings.Reader
	eventBus events.EventBus

	// minDelay floors the admin-tunable pause; tests shrink it
	minDelay time.Duration

	mu            sync.Mutex
	running       bool
	startedAt     time.Time
	cancel        context.CancelFunc
	done          chan struct{}
	current       string
	processed     int
	errors        int
	avgItemMillis float64
}

// NewQueue creates a queue over the given collaborators
func NewQueue(store catalog.Store, enricher entityEnricher, reader settings.Reader, eventBus events.EventBus) *Queue {
	return &Queue{
		store:         store,
		enricher:      enricher,
		settings:      reader,
		eventBus:      eventBus,
		minDelay:      minDelayMillis * time.Millisecond,
		avgItemMillis: emaSeedMillis,
	}
}

// Start launches the run loop. Calling Start while a loop is already
// running is a no-op, so concurrent triggers cannot double-process. An
// empty backlog never starts a loop: Start reports nothing to do and the
// queue stays idle.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}

	pendingArtists, artistErr := q.store.CountPendingArtists()
	pendingAlbums, albumErr := q.store.CountPendingAlbums()
	if artistErr == nil && albumErr == nil && pendingArtists+pendingAlbums == 0 {
		q.mu.Unlock()
		logger.Info("Enrichment queue has nothing to do: no pending artists or albums")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.running = true
	q.startedAt = time.Now()
	q.cancel = cancel
	q.done = make(chan struct{})
	q.processed = 0
	q.errors = 0
	q.avgItemMillis = emaSeedMillis
	done := q.done
	q.mu.Unlock()

	q.eventBus.PublishAsync(events.NewSystemEvent(events.EventQueueStarted,
		"Enrichment started", "Working through pending artists and albums"))

	go func() {
		defer close(done)
		q.run(ctx)
	}()
}

// Stop asks the run loop to finish the current item and exit, then waits
// for it
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	cancel := q.cancel
	done := q.done
	q.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the run loop is active
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

func (q *Queue) run(ctx context.Context) {
	defer func() {
		q.mu.Lock()
		q.running = false
		q.current = ""
		q.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			q.eventBus.PublishAsync(events.NewSystemEvent(events.EventQueueStopped,
				"Enrichment stopped", "Stopped before the backlog was drained"))
			return
		}

		processed, err := q.processNext(ctx)
		if err != nil {
			logger.Error("Enrichment queue database error: %v", err)
			q.eventBus.PublishAsync(events.NewSystemEvent(events.EventQueueStopped,
				"Enrichment stopped", err.Error()))
			return
		}
		if !processed {
			q.eventBus.PublishAsync(events.NewSystemEvent(events.EventQueueCompleted,
				"Enrichment complete", "No pending artists or albums remain"))
			return
		}

		select {
		case <-ctx.Done():
		case <-time.After(q.interItemDelay()):
		}
	}
}

// processNext enriches one pending entity. Returns false when the backlog
// is empty; a non-nil error means the catalog itself is unreachable.
func (q *Queue) processNext(ctx context.Context) (bool, error) {
	artist, err := q.store.NextPendingArtist()
	if err != nil {
		return false, err
	}
	if artist != nil {
		q.processItem(ctx, fmt.Sprintf("artist: %s", artist.Name), func() (bool, error) {
			return q.enricher.EnrichArtist(ctx, artist)
		})
		return true, nil
	}

	album, err := q.store.NextPendingAlbum()
	if err != nil {
		return false, err
	}
	if album != nil {
		q.processItem(ctx, fmt.Sprintf("album: %s", album.Name), func() (bool, error) {
			return q.enricher.EnrichAlbum(ctx, album)
		})
		return true, nil
	}

	return false, nil
}

func (q *Queue) processItem(ctx context.Context, label string, enrich func() (bool, error)) {
	q.mu.Lock()
	q.current = label
	q.mu.Unlock()

	started := time.Now()
	enriched, err := enrich()
	elapsed := time.Since(started)

	q.mu.Lock()
	q.avgItemMillis = emaAlpha*float64(elapsed.Milliseconds()) + (1-emaAlpha)*q.avgItemMillis
	q.current = ""
	if err != nil {
		q.errors++
	} else {
		q.processed++
	}
	q.mu.Unlock()

	if err != nil {
		logger.Warn("Enrichment failed for %s: %v", label, err)
		event := events.NewSystemEvent(events.EventQueueItemError, "Enrichment item failed", label)
		event.Data = map[string]interface{}{"error": err.Error()}
		q.eventBus.PublishAsync(event)
		return
	}

	event := events.NewSystemEvent(events.EventQueueItemCompleted, "Enrichment item completed", label)
	event.Data = map[string]interface{}{"enriched": enriched}
	q.eventBus.PublishAsync(event)
}

// interItemDelay reads the admin-tunable pause, clamped to the floor
func (q *Queue) interItemDelay() time.Duration {
	delay := time.Duration(q.settings.GetInt(delaySettingKey, defaultDelayMillis)) * time.Millisecond
	if delay < q.minDelay {
		delay = q.minDelay
	}
	return delay
}

// Stats returns a live snapshot; pending counts come straight from the
// catalog so external inserts and resets show up immediately.
func (q *Queue) Stats() Stats {
	pendingArtists, err := q.store.CountPendingArtists()
	if err != nil {
		logger.Error("Failed to count pending artists: %v", err)
	}
	pendingAlbums, err := q.store.CountPendingAlbums()
	if err != nil {
		logger.Error("Failed to count pending albums: %v", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{
		Running:        q.running,
		CurrentItem:    q.current,
		PendingArtists: pendingArtists,
		PendingAlbums:  pendingAlbums,
		Processed:      q.processed,
		Errors:         q.errors,
		AvgItemMillis:  q.avgItemMillis,
	}
	if q.running {
		startedAt := q.startedAt
		stats.StartedAt = &startedAt
	}

	pending := pendingArtists + pendingAlbums
	if q.running && pending > 0 {
		perItem := q.avgItemMillis + float64(q.interItemDelayLocked().Milliseconds())
		eta := time.Duration(perItem*float64(pending)) * time.Millisecond
		stats.ETA = humanize.RelTime(time.Now(), time.Now().Add(eta), "", "")
	}
	return stats
}

// interItemDelayLocked mirrors interItemDelay for callers already holding
// q.mu; the settings reader has its own synchronization.
func (q *Queue) interItemDelayLocked() time.Duration {
	delay := time.Duration(q.settings.GetInt(delaySettingKey, defaultDelayMillis)) * time.Millisecond
	if delay < q.minDelay {
		delay = q.minDelay
	}
	return delay
}

// Reset reopens already-attempted entities for another pass, per type:
// only the selected entity types are touched. With onlyWithoutExternalData
// set, entities that already hold provider data are left alone, so only
// past misses are retried. Returns the number of artists and albums
// reopened.
func (q *Queue) Reset(resetArtists, resetAlbums, onlyWithoutExternalData bool) (int64, int64, error) {
	var artists, albums int64
	var err error

	if resetArtists {
		artists, err = q.store.ResetArtistEnrichment(onlyWithoutExternalData)
		if err != nil {
			return 0, 0, err
		}
	}
	if resetAlbums {
		albums, err = q.store.ResetAlbumEnrichment(onlyWithoutExternalData)
		if err != nil {
			return artists, 0, err
		}
	}
	logger.Info("Enrichment state reset: %d artists, %d albums reopened", artists, albums)
	return artists, albums, nil
}
