package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/glados-registry/internal/api"
	"github.com/sirosfoundation/glados-registry/internal/backend"
	"github.com/sirosfoundation/glados-registry/internal/service"
	"github.com/sirosfoundation/glados-registry/internal/status"
	"github.com/sirosfoundation/glados-registry/pkg/config"
	"github.com/sirosfoundation/glados-registry/pkg/logging"
	"github.com/sirosfoundation/glados-registry/pkg/middleware"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	version    = "dev"
	buildTime  = "unknown"
)

func main() {
	flag.Parse()

	if err := config.LoadEnvFile(); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting GLaDOS registry",
		zap.String("version", version),
		zap.String("build_time", buildTime),
	)
	api.Version = version

	// Initialize storage backend
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := backend.New(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize storage backend", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", zap.Error(err))
		}
	}()

	logger.Info("Storage backend initialized", zap.String("type", cfg.Storage.Type))

	// Ping storage to verify connection
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	err = store.Ping(ctx)
	cancel()
	if err != nil {
		logger.Fatal("Failed to ping storage", zap.Error(err))
	}

	checker := status.NewChecker(cfg.Status.Timeout(), logger)
	services := service.NewServices(store, checker, cfg, logger)

	router := setupRouter(cfg, services, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("address", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		logger.Error("Server failed", zap.Error(err))
	}

	logger.Info("Shutting down server...")

	// Graceful shutdown; the store is closed by the deferred call once requests drain
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func setupRouter(cfg *config.Config, services *service.Services, logger *zap.Logger) *gin.Engine {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	handlers := api.NewHandlers(services, cfg, logger)
	handlers.RegisterRoutes(router)

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}
