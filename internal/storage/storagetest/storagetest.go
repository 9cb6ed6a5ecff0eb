// Package storagetest provides a behavioural test suite shared by every
// storage.Store backend.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/storage"
)

// Factory returns an empty store. It should register its own cleanup.
type Factory func(t *testing.T) storage.Store

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("ServerCRUD", func(t *testing.T) { testServerCRUD(t, newStore(t)) })
	t.Run("ServerEndpointConflict", func(t *testing.T) { testServerEndpointConflict(t, newStore(t)) })
	t.Run("ServerUpdate", func(t *testing.T) { testServerUpdate(t, newStore(t)) })
	t.Run("ServerListOrder", func(t *testing.T) { testServerListOrder(t, newStore(t)) })
	t.Run("ServerCopies", func(t *testing.T) { testServerCopies(t, newStore(t)) })
	t.Run("ConcurrentDistinctRegistrations", func(t *testing.T) { testConcurrentDistinct(t, newStore(t)) })
	t.Run("ConcurrentSameEndpoint", func(t *testing.T) { testConcurrentSameEndpoint(t, newStore(t)) })
	t.Run("PortalConfigCRUD", func(t *testing.T) { testPortalConfigCRUD(t, newStore(t)) })
	t.Run("PortalCRUD", func(t *testing.T) { testPortalCRUD(t, newStore(t)) })
	t.Run("PortalIndexConflict", func(t *testing.T) { testPortalIndexConflict(t, newStore(t)) })
	t.Run("PortalUnknownConfig", func(t *testing.T) { testPortalUnknownConfig(t, newStore(t)) })
	t.Run("ReferencedConfigDelete", func(t *testing.T) { testReferencedConfigDelete(t, newStore(t)) })
}

// NewServer returns a valid server bound to 127.0.0.1:port
func NewServer(name string, port uint16) *domain.Server {
	return &domain.Server{
		ID:   domain.NewServerID(),
		Name: name,
		IP:   "127.0.0.1",
		Port: port,
	}
}

// NewPortalConfig returns a valid enabled portal config
func NewPortalConfig(name string) *domain.PortalConfig {
	return &domain.PortalConfig{
		ID:          domain.NewPortalConfigID(),
		Name:        name,
		Description: name + " description",
		Destination: "overworld",
		Enabled:     true,
	}
}

// NewPortal returns a portal at index bound to configID
func NewPortal(index uint32, configID string) *domain.Portal {
	return &domain.Portal{
		Index:           index,
		FrameBlockID:    49,
		LightWithItemID: 259,
		ColorB:          255,
		ColorG:          128,
		ColorR:          0,
		ConfigID:        configID,
	}
}

func testServerCRUD(t *testing.T, store storage.Store) {
	ctx := context.Background()
	servers := store.Servers()

	server := NewServer("alpha", 25565)
	require.NoError(t, servers.Create(ctx, server))

	got, err := servers.GetByID(ctx, server.ID)
	require.NoError(t, err)
	assert.Equal(t, server, got)

	all, err := servers.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, server.ID, all[0].ID)

	require.NoError(t, servers.Delete(ctx, server.ID))

	_, err = servers.GetByID(ctx, server.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = servers.Delete(ctx, server.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err = servers.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testServerEndpointConflict(t *testing.T, store storage.Store) {
	ctx := context.Background()
	servers := store.Servers()

	first := NewServer("first", 9000)
	require.NoError(t, servers.Create(ctx, first))

	second := NewServer("second", 9000)
	err := servers.Create(ctx, second)
	assert.ErrorIs(t, err, storage.ErrConflict)

	dupID := NewServer("dup-id", 9001)
	dupID.ID = first.ID
	err = servers.Create(ctx, dupID)
	assert.ErrorIs(t, err, storage.ErrConflict)

	all, err := servers.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, first.ID, all[0].ID)

	// Same port on a different IP is a distinct endpoint
	other := NewServer("other-ip", 9000)
	other.IP = "10.0.0.2"
	assert.NoError(t, servers.Create(ctx, other))

	// Freed endpoints can be reused
	require.NoError(t, servers.Delete(ctx, first.ID))
	assert.NoError(t, servers.Create(ctx, second))
}

func testServerUpdate(t *testing.T, store storage.Store) {
	ctx := context.Background()
	servers := store.Servers()

	a := NewServer("a", 7001)
	b := NewServer("b", 7002)
	require.NoError(t, servers.Create(ctx, a))
	require.NoError(t, servers.Create(ctx, b))

	moved := *a
	moved.Name = "a-renamed"
	moved.Port = 7003
	require.NoError(t, servers.Update(ctx, &moved))

	got, err := servers.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a-renamed", got.Name)
	assert.Equal(t, uint16(7003), got.Port)

	// The old endpoint is free again
	c := NewServer("c", 7001)
	require.NoError(t, servers.Create(ctx, c))

	// Moving onto an endpoint owned by someone else conflicts
	clash := *b
	clash.Port = 7003
	err = servers.Update(ctx, &clash)
	assert.ErrorIs(t, err, storage.ErrConflict)

	got, err = servers.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, uint16(7002), got.Port)

	// Keeping its own endpoint is fine
	same := *b
	same.Name = "b-renamed"
	assert.NoError(t, servers.Update(ctx, &same))

	missing := NewServer("ghost", 7999)
	err = servers.Update(ctx, missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testServerListOrder(t *testing.T, store storage.Store) {
	ctx := context.Background()
	servers := store.Servers()

	var created []*domain.Server
	for i := range 10 {
		s := NewServer(fmt.Sprintf("srv-%d", i), uint16(8000+i))
		require.NoError(t, servers.Create(ctx, s))
		created = append(created, s)
	}

	// Delete 3, update 1
	for _, i := range []int{1, 4, 8} {
		require.NoError(t, servers.Delete(ctx, created[i].ID))
	}
	updated := *created[5]
	updated.Name = "srv-5-updated"
	require.NoError(t, servers.Update(ctx, &updated))

	all, err := servers.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 7)

	want := []int{0, 2, 3, 5, 6, 7, 9}
	for pos, i := range want {
		assert.Equal(t, created[i].ID, all[pos].ID, "position %d", pos)
	}
	assert.Equal(t, "srv-5-updated", all[3].Name)
}

func testServerCopies(t *testing.T, store storage.Store) {
	ctx := context.Background()
	servers := store.Servers()

	server := NewServer("original", 6000)
	require.NoError(t, servers.Create(ctx, server))
	server.Name = "mutated-after-create"

	got, err := servers.GetByID(ctx, server.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Name)

	got.Name = "mutated-after-get"
	all, err := servers.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "original", all[0].Name)
}

func testConcurrentDistinct(t *testing.T, store storage.Store) {
	ctx := context.Background()
	servers := store.Servers()

	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = servers.Create(ctx, NewServer(fmt.Sprintf("srv-%d", i), uint16(10000+i)))
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "registration %d", i)
	}
	all, err := servers.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func testConcurrentSameEndpoint(t *testing.T, store storage.Store) {
	ctx := context.Background()
	servers := store.Servers()

	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = servers.Create(ctx, NewServer(fmt.Sprintf("srv-%d", i), 20000))
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, storage.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)

	all, err := servers.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testPortalConfigCRUD(t *testing.T, store storage.Store) {
	ctx := context.Background()
	configs := store.PortalConfigs()

	cfg := NewPortalConfig("nether")
	require.NoError(t, configs.Create(ctx, cfg))
	assert.ErrorIs(t, configs.Create(ctx, cfg), storage.ErrConflict)

	got, err := configs.GetByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	updated := *cfg
	updated.Description = "changed"
	updated.Enabled = false
	require.NoError(t, configs.Update(ctx, &updated))

	got, err = configs.GetByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Description)
	assert.False(t, got.Enabled)

	second := NewPortalConfig("end")
	require.NoError(t, configs.Create(ctx, second))

	all, err := configs.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, cfg.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)

	require.NoError(t, configs.Delete(ctx, cfg.ID))
	_, err = configs.GetByID(ctx, cfg.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, configs.Delete(ctx, cfg.ID), storage.ErrNotFound)
	assert.ErrorIs(t, configs.Update(ctx, cfg), storage.ErrNotFound)
}

func testPortalCRUD(t *testing.T, store storage.Store) {
	ctx := context.Background()
	cfg := NewPortalConfig("nether")
	require.NoError(t, store.PortalConfigs().Create(ctx, cfg))
	other := NewPortalConfig("end")
	require.NoError(t, store.PortalConfigs().Create(ctx, other))

	portals := store.Portals()
	for _, idx := range []uint32{7, 0, 4294967295} {
		require.NoError(t, portals.Create(ctx, NewPortal(idx, cfg.ID)))
	}

	got, err := portals.GetByID(ctx, 4294967295)
	require.NoError(t, err)
	assert.Equal(t, NewPortal(4294967295, cfg.ID), got)

	all, err := portals.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint32(7), all[0].Index)
	assert.Equal(t, uint32(0), all[1].Index)
	assert.Equal(t, uint32(4294967295), all[2].Index)

	updated := NewPortal(7, other.ID)
	updated.ColorR = 200
	require.NoError(t, portals.Update(ctx, updated))

	got, err = portals.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ConfigID)
	assert.Equal(t, uint8(200), got.ColorR)

	require.NoError(t, portals.Delete(ctx, 0))
	_, err = portals.GetByID(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, portals.Delete(ctx, 0), storage.ErrNotFound)
	assert.ErrorIs(t, portals.Update(ctx, NewPortal(0, cfg.ID)), storage.ErrNotFound)
}

func testPortalIndexConflict(t *testing.T, store storage.Store) {
	ctx := context.Background()
	cfg := NewPortalConfig("nether")
	require.NoError(t, store.PortalConfigs().Create(ctx, cfg))

	portals := store.Portals()
	require.NoError(t, portals.Create(ctx, NewPortal(1, cfg.ID)))
	assert.ErrorIs(t, portals.Create(ctx, NewPortal(1, cfg.ID)), storage.ErrConflict)

	all, err := portals.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testPortalUnknownConfig(t *testing.T, store storage.Store) {
	ctx := context.Background()
	portals := store.Portals()

	err := portals.Create(ctx, NewPortal(1, domain.NewPortalConfigID()))
	assert.ErrorIs(t, err, storage.ErrReferentialConflict)

	cfg := NewPortalConfig("nether")
	require.NoError(t, store.PortalConfigs().Create(ctx, cfg))
	require.NoError(t, portals.Create(ctx, NewPortal(1, cfg.ID)))

	err = portals.Update(ctx, NewPortal(1, domain.NewPortalConfigID()))
	assert.ErrorIs(t, err, storage.ErrReferentialConflict)

	got, err := portals.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, got.ConfigID)
}

func testReferencedConfigDelete(t *testing.T, store storage.Store) {
	ctx := context.Background()
	configs := store.PortalConfigs()

	cfg := NewPortalConfig("nether")
	require.NoError(t, configs.Create(ctx, cfg))
	require.NoError(t, store.Portals().Create(ctx, NewPortal(3, cfg.ID)))

	err := configs.Delete(ctx, cfg.ID)
	assert.ErrorIs(t, err, storage.ErrReferentialConflict)

	all, err := configs.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, cfg.ID, all[0].ID)

	require.NoError(t, store.Portals().Delete(ctx, 3))
	assert.NoError(t, configs.Delete(ctx, cfg.ID))
}
