package router

import (
	"fleetgap.app/console/internal/http/handler"
	"github.com/gin-gonic/gin"
)

// ValidationRouter sets up validation session routes.
func ValidationRouter(rg *gin.RouterGroup, h *handler.ValidationHandler) {
	rg.POST("/open", h.Open)
	rg.GET("/:reportID", h.State)
	rg.DELETE("/:reportID", h.Close)
	rg.POST("/:reportID/certify", h.Certify)
	rg.POST("/:reportID/escalate", h.Escalate)
	rg.POST("/:reportID/breach", h.Breach)
}
