package storage

import (
	"context"
	"errors"

	"github.com/sirosfoundation/glados-registry/internal/domain"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an identifier or a uniqueness constraint is already taken.
	ErrConflict = errors.New("conflict")

	// ErrReferentialConflict is returned when a write would leave a dangling reference:
	// deleting a referenced portal config, or binding a portal to an unknown config.
	ErrReferentialConflict = errors.New("referential conflict")

	ErrDatabase = errors.New("database error")
)

// ServerStore defines the interface for server storage operations
type ServerStore interface {
	// Create stores a new server. The (ip, port) pair must be unused.
	Create(ctx context.Context, server *domain.Server) error

	// GetByID retrieves a server by ID
	GetByID(ctx context.Context, id string) (*domain.Server, error)

	// GetAll retrieves all servers in insertion order
	GetAll(ctx context.Context) ([]*domain.Server, error)

	// Update replaces all mutable fields of an existing server
	Update(ctx context.Context, server *domain.Server) error

	// Delete deletes a server
	Delete(ctx context.Context, id string) error
}

// PortalConfigStore defines the interface for portal config storage operations
type PortalConfigStore interface {
	Create(ctx context.Context, cfg *domain.PortalConfig) error
	GetByID(ctx context.Context, id string) (*domain.PortalConfig, error)
	GetAll(ctx context.Context) ([]*domain.PortalConfig, error)
	Update(ctx context.Context, cfg *domain.PortalConfig) error

	// Delete fails with ErrReferentialConflict while any portal references the config
	Delete(ctx context.Context, id string) error
}

// PortalStore defines the interface for portal storage operations.
// Create and Update fail with ErrReferentialConflict when ConfigID does not resolve.
type PortalStore interface {
	Create(ctx context.Context, portal *domain.Portal) error
	GetByID(ctx context.Context, index uint32) (*domain.Portal, error)
	GetAll(ctx context.Context) ([]*domain.Portal, error)
	Update(ctx context.Context, portal *domain.Portal) error
	Delete(ctx context.Context, index uint32) error
}

// Store aggregates all storage interfaces
type Store interface {
	Servers() ServerStore
	PortalConfigs() PortalConfigStore
	Portals() PortalStore

	// Close closes the storage connection
	Close() error

	// Ping checks if the storage is alive
	Ping(ctx context.Context) error
}
