package router

import (
	"net/http"

	"basegraph.app/intake/internal/http/handler"
	"basegraph.app/intake/internal/http/middleware"
	"basegraph.app/intake/internal/service"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	TraceHeaderName string
	AdminAPIKey     string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.TraceHeaderName != "" {
		router.Use(middleware.TraceHeader(cfg.TraceHeaderName))
	}

	intakeHandler := handler.NewIntakeHandler(services.Intake())
	socketHandler := handler.NewChatSocketHandler(services.Intake())
	router.GET("/ws/support-ticket-chat", socketHandler.Serve)

	v1 := router.Group("/api/v1")
	{
		IntakeRouter(v1.Group("/support-ticket-chat"), intakeHandler)

		ticketHandler := handler.NewTicketHandler(services.Tickets(), cfg.AdminAPIKey)
		TicketRouter(v1.Group("/tickets"), ticketHandler)
		IntegrationRouter(v1.Group("/integration"), ticketHandler)
	}
}
