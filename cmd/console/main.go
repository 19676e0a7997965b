package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetgap.app/console/common/id"
	"fleetgap.app/console/common/logger"
	"fleetgap.app/console/common/otel"
	"fleetgap.app/console/core/config"
	"fleetgap.app/console/core/db"
	"fleetgap.app/console/internal/audit"
	"fleetgap.app/console/internal/backend"
	"fleetgap.app/console/internal/console"
	"fleetgap.app/console/internal/http/middleware"
	httprouter "fleetgap.app/console/internal/http/router"
	"fleetgap.app/console/internal/journal"
	"fleetgap.app/console/internal/metrics"
	"fleetgap.app/console/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "console starting", "env", cfg.Env, "backend", cfg.Backend.BaseURL)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	journalStore := journal.NewStore(database.Pool())

	var auditPublisher audit.Publisher
	if cfg.Audit.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Audit.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Audit.Stream)

		auditPublisher = audit.NewRedisPublisher(redisClient, cfg.Audit.Stream, slog.Default())
		defer auditPublisher.Close()
	} else {
		slog.InfoContext(ctx, "audit stream disabled (no redis configured)")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(registry); err != nil {
		slog.ErrorContext(ctx, "failed to register metrics", "error", err)
		os.Exit(1)
	}

	hub := ws.NewHub(ws.HubConfig{
		Logger:        slog.Default(),
		OnClientCount: metrics.WSClientConnected,
	})
	defer hub.Shutdown()

	client := backend.New(backend.Config{
		BaseURL:         cfg.Backend.BaseURL,
		APIKey:          cfg.Backend.APIKey,
		AnalysisTimeout: cfg.Backend.AnalysisTimeout,
	})

	pending := console.NewPendingSet()

	// The controller and scheduler reference each other: filter and page
	// changes kick the scheduler, the scheduler drives refreshes.
	var scheduler *console.Scheduler
	list := console.NewListController(client, console.ListControllerConfig{
		DefaultInterval: cfg.Poll.DefaultInterval,
		OnSnapshot: func(snap console.Snapshot) {
			hub.Broadcast(snap)
		},
		OnStateChange: func() {
			if scheduler != nil {
				scheduler.Kick(console.TriggerManual)
			}
		},
		Pending: pending,
	})
	scheduler = console.NewScheduler(list, console.SchedulerConfig{
		FastInterval: cfg.Poll.FastInterval,
		Pending:      pending,
	})

	validator := console.NewValidator(client, console.ValidatorConfig{
		Journal: journalStore,
		Audit:   auditPublisher,
		Pending: pending,
		// Routing the post-action refresh through the scheduler also resets
		// the poll timer onto the fast cadence while the action is pending.
		OnComplete: func(context.Context) {
			scheduler.Kick(console.TriggerAction)
		},
	})

	schedulerCtx, cancelScheduler := context.WithCancel(ctx)
	defer cancelScheduler()
	go scheduler.Run(schedulerCtx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, list, validator, scheduler, journalStore, hub, registry)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Validation opens and lifecycle posts wait on the backend up to the
		// analysis ceiling before their response is written; a shorter write
		// deadline would drop the acknowledgment after the work happened.
		WriteTimeout: writeTimeoutFor(cfg.Backend.AnalysisTimeout),
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	scheduler.Stop()
	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// writeTimeoutFor leaves the slowest legitimate handler room to respond:
// the synchronous backend wait plus headroom for writing the response.
func writeTimeoutFor(analysisTimeout time.Duration) time.Duration {
	if analysisTimeout <= 0 {
		analysisTimeout = backend.DefaultAnalysisTimeout
	}
	return analysisTimeout + 30*time.Second
}

func setupRouter(
	cfg config.Config,
	list *console.ListController,
	validator *console.Validator,
	scheduler *console.Scheduler,
	journalStore journal.Store,
	hub *ws.Hub,
	registry *prometheus.Registry,
) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.DashboardURL))

	httprouter.SetupRoutes(router, httprouter.RouterConfig{
		List:            list,
		Validator:       validator,
		Refresher:       scheduler,
		Journal:         journalStore,
		WSHandler:       hub.Serve,
		WSClients:       hub.ClientCount,
		MetricsRegistry: registry,
	})

	return router
}
