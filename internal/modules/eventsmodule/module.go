// Package eventsmodule exposes the in-process event bus over HTTP: a
// recent-events endpoint and a websocket stream for live consumers.
package eventsmodule

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/harmonia/internal/events"
	"github.com/mantonx/harmonia/internal/modules/modulemanager"
	"gorm.io/gorm"
)

// Auto-register the module when imported
func init() {
	Register()
}

const (
	ModuleID   = "system.events"
	ModuleName = "Event Management"

	defaultRecentLimit = 50
)

// Module exposes the event bus over the API
type Module struct {
	id          string
	name        string
	core        bool
	eventBus    events.EventBus
	hub         *Hub
	initialized bool
}

// Register registers this module with the module system
func Register() {
	modulemanager.Register(&Module{
		id:   ModuleID,
		name: ModuleName,
		core: true,
	})
}

// ID returns the module ID
func (m *Module) ID() string {
	return m.id
}

// Name returns the module name
func (m *Module) Name() string {
	return m.name
}

// Core returns whether this is a core module
func (m *Module) Core() bool {
	return m.core
}

// Migrate is a no-op; events are held in memory only
func (m *Module) Migrate(db *gorm.DB) error {
	return nil
}

// Init initializes the events module
func (m *Module) Init() error {
	if m.initialized {
		return nil
	}

	m.eventBus = events.GetGlobalEventBus()
	if m.eventBus == nil {
		return fmt.Errorf("global event bus not initialized")
	}

	m.hub = NewHub(m.eventBus)
	m.hub.Start()

	m.initialized = true
	return nil
}

// RegisterRoutes registers API routes for event access
func (m *Module) RegisterRoutes(router *gin.Engine) {
	if !m.initialized {
		return
	}

	api := router.Group("/api/v1/events")
	{
		api.GET("", m.getRecentEvents)
		api.GET("/types", m.getEventTypes)
		api.GET("/ws", m.hub.HandleWebSocket)
	}
}

// getRecentEvents returns the newest bus events, newest first
func (m *Module) getRecentEvents(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	recent := m.eventBus.RecentEvents(limit)
	c.JSON(http.StatusOK, gin.H{
		"events": recent,
		"total":  len(recent),
	})
}

// getEventTypes lists the event types the system publishes
func (m *Module) getEventTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"types": []events.EventType{
			events.EventQueueStarted,
			events.EventQueueItemCompleted,
			events.EventQueueItemError,
			events.EventQueueStopped,
			events.EventQueueCompleted,
			events.EventArtworkUpdated,
			events.EventArtworkRemoved,
			events.EventAgentEnabled,
			events.EventAgentDisabled,
			events.EventSystemStarted,
			events.EventSystemStopped,
		},
	})
}
