// Package artworkmodule owns artwork storage and resolution: user
// uploads, downloaded provider images, embedded art extraction, and the
// HTTP endpoints that serve the resolved image with validator caching.
package artworkmodule

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/harmonia/internal/catalog"
	"github.com/mantonx/harmonia/internal/config"
	"github.com/mantonx/harmonia/internal/database"
	"github.com/mantonx/harmonia/internal/events"
	"github.com/mantonx/harmonia/internal/logger"
	"github.com/mantonx/harmonia/internal/modules/modulemanager"
	"gorm.io/gorm"
)

// Auto-register the module when imported
func init() {
	Register()
}

const (
	ModuleID   = "system.artwork"
	ModuleName = "Artwork"

	// Resolved images are served content-addressed (the tag changes when
	// the file does), so clients may cache them forever.
	cacheControl = "public, max-age=31536000, immutable"

	maxUploadBytes = 20 << 20
)

// Module wires artwork storage and resolution into the application
type Module struct {
	id   string
	name string
	core bool

	db          *gorm.DB
	eventBus    events.EventBus
	manager     *Manager
	resolver    *Resolver
	cache       *ResolutionCache
	watcher     *Watcher
	store       catalog.Store
	initialized bool
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

// GetModule returns the registered artwork module instance
func GetModule() *Module {
	return moduleInstance
}

// ID returns the module ID
func (m *Module) ID() string { return m.id }

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Core returns whether this is a core module
func (m *Module) Core() bool { return m.core }

// Migrate creates the artwork table
func (m *Module) Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&ArtworkFile{})
}

// Init sets up storage, resolution, and the filesystem watcher
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
	m.manager = NewManager(m.db, m.eventBus, cfg.ArtworkDir)
	if err := m.manager.Initialize(); err != nil {
		return err
	}

	m.store = catalog.NewGormStore(m.db)
	m.cache = NewResolutionCache()
	m.manager.SetResolutionCache(m.cache)
	m.resolver = NewResolver(m.manager, m.store, m.cache, m.eventBus)

	watcher, err := NewWatcher(cfg.ArtworkDir, m.cache)
	if err != nil {
		// Resolution still works without the watcher, just with TTL-bound
		// staleness for out-of-band file changes.
		logger.Warn("Artwork watcher unavailable: %v", err)
	} else {
		m.watcher = watcher
	}

	m.initialized = true
	return nil
}

// Manager exposes the artwork manager to other modules
func (m *Module) Manager() *Manager {
	return m.manager
}

// Resolver exposes the artwork resolver
func (m *Module) Resolver() *Resolver {
	return m.resolver
}

// RegisterRoutes registers the artwork API
func (m *Module) RegisterRoutes(router *gin.Engine) {
	if !m.initialized {
		return
	}

	api := router.Group("/api/v1")
	{
		api.GET("/artists/:id/image", m.serveArtistImage)
		api.PUT("/artists/:id/image", m.uploadArtwork(OwnerArtist))
		api.DELETE("/artists/:id/image", m.removeArtwork(OwnerArtist))

		api.GET("/albums/:id/cover", m.serveAlbumCover)
		api.PUT("/albums/:id/cover", m.uploadArtwork(OwnerAlbum))
		api.DELETE("/albums/:id/cover", m.removeArtwork(OwnerAlbum))

		api.GET("/users/:id/avatar", m.serveUserAvatar)
		api.PUT("/users/:id/avatar", m.uploadArtwork(OwnerUser))
		api.DELETE("/users/:id/avatar", m.removeArtwork(OwnerUser))
	}
}

func (m *Module) serveArtistImage(c *gin.Context) {
	m.serveResolved(c, func() (*Resolved, error) {
		return m.resolver.ResolveArtistImage(c.Param("id"))
	})
}

func (m *Module) serveAlbumCover(c *gin.Context) {
	m.serveResolved(c, func() (*Resolved, error) {
		return m.resolver.ResolveAlbumCover(c.Param("id"))
	})
}

func (m *Module) serveUserAvatar(c *gin.Context) {
	m.serveResolved(c, func() (*Resolved, error) {
		return m.resolver.ResolveUserAvatar(c.Param("id"))
	})
}

// serveResolved serves the resolved file with validator caching: the tag
// doubles as the ETag, so unchanged images answer 304 without a body.
func (m *Module) serveResolved(c *gin.Context, resolve func() (*Resolved, error)) {
	resolved, err := resolve()
	if err != nil {
		if err == ErrNoArtwork {
			c.JSON(http.StatusNotFound, gin.H{"error": "no artwork available"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	etag := `"` + resolved.Tag + `"`
	c.Header("Cache-Control", cacheControl)
	c.Header("ETag", etag)

	if match := c.GetHeader("If-None-Match"); match != "" && strings.Contains(match, etag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("Content-Type", resolved.MimeType)
	c.File(resolved.Path)
}

// uploadArtwork accepts a raw image body and makes it the owner's custom
// artwork
func (m *Module) uploadArtwork(owner OwnerType) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
			return
		}
		if len(data) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty upload"})
			return
		}
		if len(data) > maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}

		artwork, err := m.manager.SaveCustomArtwork(owner, c.Param("id"), data, c.ContentType())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		m.cache.Invalidate(resolutionKey(owner, c.Param("id")))
		c.JSON(http.StatusOK, artwork)
	}
}

// removeArtwork retires the owner's custom upload; the cascade falls back
// to the next source on the following request.
func (m *Module) removeArtwork(owner OwnerType) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := m.manager.RemoveCustomArtwork(owner, c.Param("id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		m.cache.Invalidate(resolutionKey(owner, c.Param("id")))
		c.Status(http.StatusNoContent)
	}
}
