package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/harmonia/internal/config"
	"github.com/mantonx/harmonia/internal/database"
	"github.com/mantonx/harmonia/internal/events"
	"github.com/mantonx/harmonia/internal/logger"
	"github.com/mantonx/harmonia/internal/modules/artworkmodule"
	"github.com/mantonx/harmonia/internal/modules/enrichmentmodule"
	"github.com/mantonx/harmonia/internal/modules/modulemanager"

	// Modules register themselves at import time
	_ "github.com/mantonx/harmonia/internal/modules/eventsmodule"
)

func main() {
	cfg := config.Load()

	database.Initialize()

	if err := modulemanager.LoadAll(database.GetDB()); err != nil {
		logger.Error("Failed to load modules: %v", err)
		os.Exit(1)
	}

	// The enrichment module persists downloaded artwork through the artwork
	// module; module load order is undefined, so wire the two here.
	enrichmentmodule.GetModule().SetArtworkStore(artworkmodule.GetModule().Manager())

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	modulemanager.RegisterRoutes(router)

	eventBus := events.GetGlobalEventBus()
	eventBus.Publish(events.NewSystemEvent(events.EventSystemStarted,
		"Harmonia started", "enrichment and artwork services are up"))

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop

		logger.Info("Shutting down")
		enrichmentmodule.GetModule().Queue().Stop()
		eventBus.Publish(events.NewSystemEvent(events.EventSystemStopped,
			"Harmonia stopping", "shutdown signal received"))
		os.Exit(0)
	}()

	logger.Info("🚀 Starting Harmonia server on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("Server exited: %v", err)
		os.Exit(1)
	}
}
