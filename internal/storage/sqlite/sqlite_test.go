package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/glados-registry/internal/storage"
	"github.com/sirosfoundation/glados-registry/internal/storage/storagetest"
)

func newTestStore(t *testing.T) *Store {
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "glados.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "glados.db")

	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "glados.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)

	server := storagetest.NewServer("persisted", 25565)
	require.NoError(t, store.Servers().Create(ctx, server))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Servers().GetByID(ctx, server.ID)
	require.NoError(t, err)
	assert.Equal(t, server, got)
}
