package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/service"
	"github.com/sirosfoundation/glados-registry/internal/storage"
	"github.com/sirosfoundation/glados-registry/pkg/config"
	"github.com/sirosfoundation/glados-registry/pkg/middleware"
)

const storePingTimeout = 2 * time.Second

// Handlers aggregates all HTTP handlers
type Handlers struct {
	services *service.Services
	cfg      *config.Config
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services *service.Services, cfg *config.Config, logger *zap.Logger) *Handlers {
	return &Handlers{
		services: services,
		cfg:      cfg,
		logger:   logger.Named("handlers"),
	}
}

// RegisterRoutes mounts the health endpoints and the /api tree on router.
// Mutating /api routes require the configured API token, if any, and the
// status routes are rate limited per client IP.
func (h *Handlers) RegisterRoutes(router gin.IRouter) {
	router.GET("/status", h.Status)
	router.GET("/health", h.Status)

	apiGroup := router.Group("/api")
	if h.cfg.Server.APIToken != "" {
		apiGroup.Use(middleware.TokenAuth(h.cfg.Server.APIToken, h.logger))
	}

	limiter := middleware.NewRateLimiter(h.cfg.Status.RateLimit, h.logger)

	servers := apiGroup.Group("/server")
	{
		servers.GET("", h.ListServers)
		servers.POST("", h.RegisterServer)
		servers.GET("/:id", h.GetServer)
		servers.PUT("/:id", h.UpdateServer)
		servers.DELETE("/:id", h.UnregisterServer)

		status := servers.Group("/status")
		status.Use(limiter.Middleware())
		status.GET("", h.ServerStatusAll)
		status.GET("/:id", h.ServerStatus)
	}

	configs := apiGroup.Group("/portal/config")
	{
		configs.GET("", h.ListPortalConfigs)
		configs.POST("", h.CreatePortalConfig)
		configs.GET("/:id", h.GetPortalConfig)
		configs.PUT("/:id", h.UpdatePortalConfig)
		configs.DELETE("/:id", h.DeletePortalConfig)
	}

	portals := apiGroup.Group("/portal")
	{
		portals.GET("", h.ListPortals)
		portals.POST("", h.CreatePortal)
		portals.GET("/:index", h.GetPortal)
		portals.PUT("/:index", h.UpdatePortal)
		portals.DELETE("/:index", h.DeletePortal)
	}

	// Read-only plural aliases used by older dashboard clients
	apiGroup.GET("/servers", h.ListServers)
	apiGroup.GET("/portals", h.ListPortals)
}

// Status handles the /status and /health endpoints
func (h *Handlers) Status(c *gin.Context) {
	resp := StatusResponse{
		Status:       "ok",
		Service:      "glados-registry",
		Version:      Version,
		Store:        "ok",
		APIVersion:   CurrentAPIVersion,
		Capabilities: APICapabilities[CurrentAPIVersion],
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storePingTimeout)
	defer cancel()
	if err := h.services.Ping(ctx); err != nil {
		h.logger.Error("Store ping failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Store = "unavailable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// respondError translates a service error into an HTTP response. Anything
// that is not a client error is logged and reported as 500 with msg.
func (h *Handlers) respondError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, storage.ErrReferentialConflict), errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg,
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// bindJSON decodes the request body into dst, answering 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return false
	}
	return true
}
