// Package enrichmentmodule owns the metadata enrichment pipeline: the
// provider agents, the background queue that drains the pending catalog,
// and the admin API for driving both.
package enrichmentmodule

import (
	"fmt"
	"time"

	"github.com/mantonx/harmonia/internal/agents"
	"github.com/mantonx/harmonia/internal/agents/coverart"
	"github.com/mantonx/harmonia/internal/agents/fanarttv"
	"github.com/mantonx/harmonia/internal/agents/lastfm"
	"github.com/mantonx/harmonia/internal/agents/musicbrainz"
	"github.com/mantonx/harmonia/internal/agents/wikipedia"
	"github.com/mantonx/harmonia/internal/catalog"
	"github.com/mantonx/harmonia/internal/config"
	"github.com/mantonx/harmonia/internal/database"
	"github.com/mantonx/harmonia/internal/events"
	"github.com/mantonx/harmonia/internal/modules/modulemanager"
	"github.com/mantonx/harmonia/internal/ratelimit"
	"github.com/mantonx/harmonia/internal/settings"
	"gorm.io/gorm"
)

// Auto-register the module when imported
func init() {
	Register()
}

const (
	ModuleID   = "system.enrichment"
	ModuleName = "Metadata Enrichment"
)

// Module wires the enrichment pipeline into the application
type Module struct {
	id   string
	name string
	core bool

	db           *gorm.DB
	eventBus     events.EventBus
	settings     *settings.Service
	registry     *agents.Registry
	orchestrator *agents.Orchestrator
	queue        *Queue
	enricher     *Enricher
	store        catalog.Store
	downloader   *ImageDownloader
	initialized  bool

	// artworkStore is injected after all modules are registered; see
	// SetArtworkStore.
	artworkStore ArtworkStore
}

var moduleInstance *Module

// Register registers this module with the module system
func Register() {
	moduleInstance = &Module{
		id:   ModuleID,
		name: ModuleName,
		core: true,
	}
	modulemanager.Register(moduleInstance)
}

// GetModule returns the registered enrichment module instance
func GetModule() *Module {
	return moduleInstance
}

// ID returns the module ID
func (m *Module) ID() string { return m.id }

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Core returns whether this is a core module
func (m *Module) Core() bool { return m.core }

// SetArtworkStore injects the artwork persistence backend. Must be called
// before the queue starts processing; main wires it right after LoadAll.
func (m *Module) SetArtworkStore(store ArtworkStore) {
	m.artworkStore = store
	if m.enricher != nil {
		m.enricher.artwork = store
	}
}

// Migrate handles database schema migrations
func (m *Module) Migrate(db *gorm.DB) error {
	// Catalog tables are migrated by the database package; settings get
	// their table here since the enrichment module owns that service.
	return settings.NewService(db).Migrate()
}

// Init builds the agent stack and the queue
func (m *Module) Init() error {
	if m.initialized {
		return nil
	}

	m.db = database.GetDB()
	if m.db == nil {
		return fmt.Errorf("database not initialized")
	}
	m.eventBus = events.GetGlobalEventBus()

	cfg := config.Get()
	timeout := time.Duration(cfg.ProviderTimeoutSecs) * time.Second

	m.settings = settings.NewService(m.db)
	limiter := ratelimit.NewLimiter()

	m.registry = agents.NewRegistry()
	m.registry.Register(musicbrainz.NewAgent(m.settings, limiter, cfg.UserAgent, timeout))
	m.registry.Register(coverart.NewAgent(m.settings, limiter, cfg.UserAgent, timeout))
	m.registry.Register(lastfm.NewAgent(m.settings, limiter, cfg.UserAgent, timeout))
	m.registry.Register(fanarttv.NewAgent(m.settings, limiter, cfg.UserAgent, timeout))
	m.registry.Register(wikipedia.NewAgent(m.settings, limiter, cfg.UserAgent, timeout))

	m.orchestrator = agents.NewOrchestrator(m.registry)
	m.store = catalog.NewGormStore(m.db)
	m.downloader = NewImageDownloader(cfg.UserAgent, timeout, cfg.ImageDownloadMaxBytes)
	m.enricher = NewEnricher(m.store, m.registry, m.orchestrator, m.downloader, m.artworkStore)
	m.queue = NewQueue(m.store, m.enricher, m.settings, m.eventBus)

	m.initialized = true
	return nil
}

// Registry exposes the agent registry to other modules and handlers
func (m *Module) Registry() *agents.Registry {
	return m.registry
}

// Queue exposes the enrichment queue
func (m *Module) Queue() *Queue {
	return m.queue
}

// Settings exposes the settings service
func (m *Module) Settings() *settings.Service {
	return m.settings
}
