// Package backend selects and opens the storage implementation named in the configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/sirosfoundation/glados-registry/internal/storage"
	"github.com/sirosfoundation/glados-registry/internal/storage/memory"
	"github.com/sirosfoundation/glados-registry/internal/storage/mongodb"
	"github.com/sirosfoundation/glados-registry/internal/storage/sqlite"
	"github.com/sirosfoundation/glados-registry/pkg/config"
)

// Type defines the type of storage backend
type Type string

const (
	// TypeMemory keeps records in process memory only (for testing/development)
	TypeMemory Type = "memory"
	// TypeFile mirrors the in-memory store to JSON snapshot files
	TypeFile Type = "file"
	// TypeSQLite stores records in an embedded SQLite database
	TypeSQLite Type = "sqlite"
	// TypeMongoDB stores records in MongoDB
	TypeMongoDB Type = "mongodb"
)

// New opens a storage backend based on the configuration. Durable backends
// create their file or directory when it does not exist yet.
func New(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	storageType := Type(cfg.Storage.Type)

	switch storageType {
	case TypeMemory, "":
		return memory.NewStore(), nil

	case TypeFile:
		store, err := memory.Open(cfg.Storage.File.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to create file backend: %w", err)
		}
		return store, nil

	case TypeSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return store, nil

	case TypeMongoDB:
		store, err := mongodb.NewStore(ctx, &cfg.Storage.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create MongoDB backend: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
