package router

import (
	"fleetgap.app/console/internal/http/handler"
	"github.com/gin-gonic/gin"
)

// JournalRouter sets up action journal routes.
func JournalRouter(rg *gin.RouterGroup, h *handler.JournalHandler) {
	rg.GET("", h.ListRecent)
	rg.GET("/report/:reportID", h.ListByReport)
}
