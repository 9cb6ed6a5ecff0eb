package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/storage"
)

// PortalConfigService provides portal config management operations
type PortalConfigService struct {
	store  storage.Store
	logger *zap.Logger
}

// NewPortalConfigService creates a new portal config service
func NewPortalConfigService(store storage.Store, logger *zap.Logger) *PortalConfigService {
	return &PortalConfigService{
		store:  store,
		logger: logger,
	}
}

// List returns all portal configs in creation order
func (s *PortalConfigService) List(ctx context.Context) ([]*domain.PortalConfig, error) {
	return s.store.PortalConfigs().GetAll(ctx)
}

// Get retrieves a portal config by ID
func (s *PortalConfigService) Get(ctx context.Context, id string) (*domain.PortalConfig, error) {
	id, err := pathID(id)
	if err != nil {
		return nil, err
	}
	return s.store.PortalConfigs().GetByID(ctx, id)
}

// Create validates and stores a new portal config
func (s *PortalConfigService) Create(ctx context.Context, cfg *domain.PortalConfig) (*domain.PortalConfig, error) {
	if cfg.ID == "" {
		cfg.ID = domain.NewPortalConfigID()
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	if err := s.store.PortalConfigs().Create(ctx, cfg); err != nil {
		s.logger.Error("Failed to create portal config",
			zap.String("config_id", cfg.ID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Created portal config",
		zap.String("config_id", cfg.ID),
		zap.String("name", cfg.Name))

	created := *cfg
	return &created, nil
}

// Update replaces the mutable fields of a portal config
func (s *PortalConfigService) Update(ctx context.Context, id string, cfg *domain.PortalConfig) (*domain.PortalConfig, error) {
	id, err := pathID(id)
	if err != nil {
		return nil, err
	}
	if cfg.ID != "" {
		bodyID, err := domain.ParseID("id", cfg.ID)
		if err != nil {
			return nil, err
		}
		if bodyID != id {
			return nil, domain.NewValidationError("id", "is immutable")
		}
	}
	cfg.ID = id
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	if err := s.store.PortalConfigs().Update(ctx, cfg); err != nil {
		s.logger.Error("Failed to update portal config",
			zap.String("config_id", id),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Updated portal config", zap.String("config_id", id))

	updated := *cfg
	return &updated, nil
}

// Delete deletes a portal config. It fails with storage.ErrReferentialConflict
// while any portal still references it.
func (s *PortalConfigService) Delete(ctx context.Context, id string) error {
	id, err := pathID(id)
	if err != nil {
		return err
	}

	if err := s.store.PortalConfigs().Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete portal config",
			zap.String("config_id", id),
			zap.Error(err))
		return err
	}

	s.logger.Info("Deleted portal config", zap.String("config_id", id))
	return nil
}

// PortalService provides portal management operations
type PortalService struct {
	store  storage.Store
	logger *zap.Logger
}

// NewPortalService creates a new portal service
func NewPortalService(store storage.Store, logger *zap.Logger) *PortalService {
	return &PortalService{
		store:  store,
		logger: logger,
	}
}

// List returns all portals in creation order
func (s *PortalService) List(ctx context.Context) ([]*domain.Portal, error) {
	return s.store.Portals().GetAll(ctx)
}

// Get retrieves a portal by index
func (s *PortalService) Get(ctx context.Context, index uint32) (*domain.Portal, error) {
	return s.store.Portals().GetByID(ctx, index)
}

// Create validates and stores a new portal
func (s *PortalService) Create(ctx context.Context, portal *domain.Portal) (*domain.Portal, error) {
	if err := portal.Normalize(); err != nil {
		return nil, err
	}

	if err := s.store.Portals().Create(ctx, portal); err != nil {
		s.logger.Error("Failed to create portal",
			zap.Uint32("index", portal.Index),
			zap.String("config_id", portal.ConfigID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Created portal",
		zap.Uint32("index", portal.Index),
		zap.String("config_id", portal.ConfigID))

	created := *portal
	return &created, nil
}

// Update replaces the mutable fields of the portal at index.
// portal.Index must equal index.
func (s *PortalService) Update(ctx context.Context, index uint32, portal *domain.Portal) (*domain.Portal, error) {
	if portal.Index != index {
		return nil, domain.NewValidationError("index", "is immutable")
	}
	if err := portal.Normalize(); err != nil {
		return nil, err
	}

	if err := s.store.Portals().Update(ctx, portal); err != nil {
		s.logger.Error("Failed to update portal",
			zap.Uint32("index", index),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Updated portal",
		zap.Uint32("index", index),
		zap.String("config_id", portal.ConfigID))

	updated := *portal
	return &updated, nil
}

// Delete deletes a portal
func (s *PortalService) Delete(ctx context.Context, index uint32) error {
	if err := s.store.Portals().Delete(ctx, index); err != nil {
		s.logger.Error("Failed to delete portal",
			zap.Uint32("index", index),
			zap.Error(err))
		return err
	}

	s.logger.Info("Deleted portal", zap.Uint32("index", index))
	return nil
}
