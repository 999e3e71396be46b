package router

import (
	"basegraph.app/intake/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func IntakeRouter(rg *gin.RouterGroup, h *handler.IntakeHandler) {
	rg.POST("", h.Chat)
	rg.GET("/:session_id", h.Resume)
}
