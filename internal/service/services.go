package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sirosfoundation/glados-registry/internal/status"
	"github.com/sirosfoundation/glados-registry/internal/storage"
	"github.com/sirosfoundation/glados-registry/pkg/config"
)

// Services holds all registry services
type Services struct {
	Server       *ServerService
	PortalConfig *PortalConfigService
	Portal       *PortalService

	store storage.Store
}

// NewServices creates a new Services instance
func NewServices(store storage.Store, checker *status.Checker, cfg *config.Config, logger *zap.Logger) *Services {
	return &Services{
		Server:       NewServerService(store, checker, cfg.Status.Concurrency, logger),
		PortalConfig: NewPortalConfigService(store, logger),
		Portal:       NewPortalService(store, logger),
		store:        store,
	}
}

// Ping checks that the underlying store is reachable
func (s *Services) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
