package router

import (
	"fleetgap.app/console/internal/http/handler"
	"github.com/gin-gonic/gin"
)

// AlertsRouter sets up list state routes.
func AlertsRouter(rg *gin.RouterGroup, h *handler.AlertsHandler) {
	rg.GET("", h.Snapshot)
	rg.POST("/refresh", h.Refresh)
	rg.POST("/page/next", h.NextPage)
	rg.POST("/page/prev", h.PrevPage)
	rg.PUT("/filters", h.SetFilters)
}
