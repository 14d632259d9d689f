package enrichmentmodule

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/harmonia/internal/agents"
	"github.com/mantonx/harmonia/internal/events"
	"github.com/mantonx/harmonia/internal/logger"
)

// RegisterRoutes registers the enrichment admin API
func (m *Module) RegisterRoutes(router *gin.Engine) {
	if !m.initialized {
		return
	}

	api := router.Group("/api/v1/enrichment")
	{
		api.GET("/agents", m.listAgents)
		api.POST("/agents/reload", m.reloadAgents)

		api.POST("/queue/start", m.startQueue)
		api.POST("/queue/stop", m.stopQueue)
		api.GET("/queue/stats", m.queueStats)
		api.POST("/queue/reset", m.resetQueue)

		api.POST("/search/artist-images", m.searchArtistImages)
		api.POST("/search/album-covers", m.searchAlbumCovers)

		api.PUT("/artists/:id/image", m.applyArtistImage)
		api.PUT("/albums/:id/cover", m.applyAlbumCover)
	}
}

type agentInfo struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

func (m *Module) listAgents(c *gin.Context) {
	var infos []agentInfo
	for _, agent := range m.registry.AllAgents() {
		infos = append(infos, agentInfo{
			Name:     agent.Name(),
			Priority: agent.Priority(),
			Enabled:  agent.Enabled(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"agents": infos})
}

// reloadAgents re-reads every agent's settings. Agents that flipped from
// disabled to enabled reopen the no-data backlog: entities attempted while
// the agent was dark get another chance with it live.
func (m *Module) reloadAgents(c *gin.Context) {
	m.settings.Flush()
	newlyEnabled := m.registry.ReloadSettings()

	if len(newlyEnabled) > 0 {
		for _, name := range newlyEnabled {
			event := events.NewSystemEvent(events.EventAgentEnabled, "Agent enabled", name)
			m.eventBus.PublishAsync(event)
		}

		artists, albums, err := m.queue.Reset(true, true, true)
		if err != nil {
			logger.Error("Failed to reopen backlog after agent enable: %v", err)
		} else if artists+albums > 0 {
			m.queue.Start()
		}
	}

	c.JSON(http.StatusOK, gin.H{"newly_enabled": newlyEnabled})
}

func (m *Module) startQueue(c *gin.Context) {
	m.queue.Start()
	c.JSON(http.StatusOK, m.queue.Stats())
}

func (m *Module) stopQueue(c *gin.Context) {
	m.queue.Stop()
	c.JSON(http.StatusOK, m.queue.Stats())
}

func (m *Module) queueStats(c *gin.Context) {
	c.JSON(http.StatusOK, m.queue.Stats())
}

type resetRequest struct {
	ResetArtists            bool `json:"reset_artists"`
	ResetAlbums             bool `json:"reset_albums"`
	OnlyWithoutExternalData bool `json:"only_without_external_data"`
	Restart                 bool `json:"restart"`
}

func (m *Module) resetQueue(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.ResetArtists && !req.ResetAlbums {
		c.JSON(http.StatusBadRequest, gin.H{"error": "select at least one of reset_artists, reset_albums"})
		return
	}

	artists, albums, err := m.queue.Reset(req.ResetArtists, req.ResetAlbums, req.OnlyWithoutExternalData)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if req.Restart {
		m.queue.Start()
	}

	c.JSON(http.StatusOK, gin.H{
		"artists_reopened": artists,
		"albums_reopened":  albums,
	})
}

type artistImageSearchRequest struct {
	ArtistID string `json:"artist_id" binding:"required"`
}

// searchArtistImages fans a live search out to every enabled provider and
// returns the merged candidates for the admin UI to choose from.
func (m *Module) searchArtistImages(c *gin.Context) {
	var req artistImageSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	artist, err := m.store.GetArtist(req.ArtistID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "artist not found"})
		return
	}

	options := m.orchestrator.SearchArtistImages(c.Request.Context(), agents.ArtistImageQuery{
		ArtistName:  artist.Name,
		MbzArtistID: artist.MbzArtistID,
	})
	c.JSON(http.StatusOK, gin.H{"options": options})
}

type albumCoverSearchRequest struct {
	AlbumID string `json:"album_id" binding:"required"`
}

func (m *Module) searchAlbumCovers(c *gin.Context) {
	var req albumCoverSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	album, err := m.store.GetAlbum(req.AlbumID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
		return
	}

	query := agents.AlbumCoverQuery{
		AlbumName:  album.Name,
		MbzAlbumID: album.MbzAlbumID,
	}
	if artist, err := m.store.GetArtist(album.ArtistID); err == nil {
		query.ArtistName = artist.Name
		query.MbzArtistID = artist.MbzArtistID
	}

	options := m.orchestrator.SearchAlbumCovers(c.Request.Context(), query)
	c.JSON(http.StatusOK, gin.H{"options": options})
}

type applyImageRequest struct {
	URL string `json:"url" binding:"required"`
}

// applyArtistImage downloads a chosen option and makes it the artist's
// external image
func (m *Module) applyArtistImage(c *gin.Context) {
	var req applyImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	artist, err := m.store.GetArtist(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "artist not found"})
		return
	}

	data, mimeType, err := m.downloader.Download(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	path, err := m.artworkStore.SaveExternalArtistImage(artist.ID, data, mimeType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	if err := m.store.UpdateArtist(artist.ID, map[string]interface{}{
		"external_image_path":      path,
		"external_info_updated_at": &now,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	m.artworkStore.InvalidateArtistImage(artist.ID)

	m.eventBus.PublishAsync(events.NewSystemEvent(events.EventArtworkUpdated,
		"Artist image updated", artist.Name))
	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (m *Module) applyAlbumCover(c *gin.Context) {
	var req applyImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	album, err := m.store.GetAlbum(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
		return
	}

	data, mimeType, err := m.downloader.Download(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	path, err := m.artworkStore.SaveExternalAlbumCover(album.ID, data, mimeType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	if err := m.store.UpdateAlbum(album.ID, map[string]interface{}{
		"external_art_path":        path,
		"external_info_updated_at": &now,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	m.artworkStore.InvalidateAlbumCover(album.ID)

	m.eventBus.PublishAsync(events.NewSystemEvent(events.EventArtworkUpdated,
		"Album cover updated", album.Name))
	c.JSON(http.StatusOK, gin.H{"path": path})
}
