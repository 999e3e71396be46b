package router

import (
	"basegraph.app/intake/internal/http/handler"
	"github.com/gin-gonic/gin"
)

// TicketRouter sets up the product-manager ticket routes. All of them require
// the admin API key.
func TicketRouter(rg *gin.RouterGroup, h *handler.TicketHandler) {
	rg.Use(h.RequireAdminAPIKey())
	{
		rg.GET("", h.List)
		rg.GET("/:id", h.Get)
		rg.PATCH("", h.UpdateStatus)
		rg.PATCH("/:id", h.Update)
		rg.DELETE("/:id", h.Delete)
	}
}

// IntegrationRouter exposes pushing selected tickets to an external tracker.
func IntegrationRouter(rg *gin.RouterGroup, h *handler.TicketHandler) {
	rg.Use(h.RequireAdminAPIKey())
	{
		rg.POST("", h.Push)
	}
}
