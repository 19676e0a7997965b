package router

import (
	"net/http"

	"fleetgap.app/console/internal/console"
	"fleetgap.app/console/internal/http/handler"
	"fleetgap.app/console/internal/journal"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	List      *console.ListController
	Validator *console.Validator
	Refresher handler.Refresher
	Journal   journal.Store

	// WSHandler serves the snapshot push socket.
	WSHandler http.HandlerFunc

	// WSClients reports the number of connected snapshot subscribers,
	// surfaced in the health payload.
	WSClients func() int

	// MetricsRegistry backs /metrics. The console registers its collectors on
	// its own registry rather than the global default.
	MetricsRegistry *prometheus.Registry
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		resp := gin.H{"status": "ok"}
		if cfg.WSClients != nil {
			resp["ws_clients"] = cfg.WSClients()
		}
		c.JSON(200, resp)
	})

	if cfg.MetricsRegistry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.MetricsRegistry, promhttp.HandlerOpts{})))
	}

	if cfg.WSHandler != nil {
		router.GET("/ws", gin.WrapF(cfg.WSHandler))
	}

	v1 := router.Group("/api/v1")
	{
		alertsHandler := handler.NewAlertsHandler(cfg.List, cfg.Refresher)
		AlertsRouter(v1.Group("/alerts"), alertsHandler)

		validationHandler := handler.NewValidationHandler(cfg.Validator, cfg.List)
		ValidationRouter(v1.Group("/validation"), validationHandler)

		if cfg.Journal != nil {
			journalHandler := handler.NewJournalHandler(cfg.Journal)
			JournalRouter(v1.Group("/journal"), journalHandler)
		}
	}
}
