package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"github.com/sjperalta/lotes-api/internal/config"
	"github.com/sjperalta/lotes-api/internal/database"
	"github.com/sjperalta/lotes-api/internal/handlers"
	"github.com/sjperalta/lotes-api/internal/jobs"
	"github.com/sjperalta/lotes-api/internal/metrics"
	"github.com/sjperalta/lotes-api/internal/middleware"
	"github.com/sjperalta/lotes-api/internal/repository"
	"github.com/sjperalta/lotes-api/internal/services"
	"github.com/sjperalta/lotes-api/pkg/logger"
)

// @title Lotes API
// @version 1.0
// @description REST API for lot sales and installment financing
// @BasePath /api/v1
// @schemes http
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Environment, cfg.LogLevel)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, database.Options{Production: cfg.IsProduction()})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if cfg.RunMigrations {
		sqlDB, err := db.DB()
		if err != nil {
			logger.Error("Failed to get database handle", "error", err)
			os.Exit(1)
		}
		if err := database.RunMigrations(sqlDB); err != nil {
			logger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("Migrations applied")
	}

	policy, err := config.LoadFinancingPolicy(cfg.FinancingConfigPath)
	if err != nil {
		logger.Error("Failed to load financing policy", "error", err)
		os.Exit(1)
	}

	cache := newDashboardCache(cfg)

	m := metrics.New()
	repos := repository.NewRepositories(db)

	worker := jobs.NewWorker(cfg.WorkerCount, m)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	clock := services.SystemClock()
	svcs := services.NewServices(repos, worker, m, cache, policy, cfg, clock)
	svcs.Job.Start(policy.OverdueSweepInterval)
	logger.Info("Scheduled recurring jobs", "overdue_sweep_interval", policy.OverdueSweepInterval)

	h := handlers.NewHandlers(svcs, clock)
	router := setupRouter(h, m, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	if closer, ok := cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("Failed to close dashboard cache", "error", err)
		}
	}

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

// newDashboardCache connects to Redis when configured. The API keeps working without it.
func newDashboardCache(cfg *config.Config) services.DashboardCache {
	if cfg.RedisURL == "" {
		logger.Info("Dashboard cache disabled: REDIS_URL not set")
		return services.NoopCache{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cache, err := services.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("Dashboard cache unavailable, continuing without it", "error", err)
		return services.NoopCache{}
	}
	logger.Info("Connected to Redis dashboard cache")
	return cache
}

func setupRouter(h *handlers.Handlers, m *metrics.Metrics, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(m))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.ActingUser())
	h.Register(v1)

	return router
}
