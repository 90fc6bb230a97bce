// Package router provides voicedesk service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/voicedesk/internal/voicedesk/biz"
	"github.com/kart-io/voicedesk/internal/voicedesk/handler"
	"github.com/kart-io/voicedesk/internal/voicedesk/metrics"
)

// Register mounts the voicedesk routes on engine.
func Register(engine *gin.Engine, h *handler.Handler, tenants *biz.TenantService) {
	logger.Info("Registering voicedesk routes...")

	engine.GET("/healthz", h.Healthz)
	engine.GET("/metrics", metrics.Handler)

	api := engine.Group("/api", metrics.ObserveLatency("/api/events/subscribe"), handler.TenantContext(tenants))
	{
		// Voice SDK webhook
		api.POST("/webhook", h.Webhook)

		// Knowledge
		api.POST("/ingest", h.Ingest)
		api.GET("/knowledge/search", h.SearchKnowledge)

		// Tenant configuration
		api.GET("/tenant-config", h.GetTenantConfig)
		api.POST("/tenant-config", h.SaveTenantConfig)
		api.POST("/reset", h.Reset)

		// Event relay
		events := api.Group("/events")
		{
			events.GET("/subscribe", h.Subscribe)
			events.GET("/range", h.RangeEvents)
			events.POST("/publish", h.Publish)
		}

		api.GET("/tickets/:id", h.GetTicket)
		api.GET("/calls/:id/tickets", h.ListCallTickets)

		api.GET("/shows", h.ListShows)
		api.POST("/shows", h.SaveShows)
	}

	logger.Info("HTTP routes registered")
}
