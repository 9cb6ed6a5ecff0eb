package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/storage"
)

// persistFunc writes a full snapshot of one record kind. A nil persistFunc
// makes the store purely in-memory.
type persistFunc func(records any) error

// Store implements an in-memory storage, optionally mirrored to snapshot files
type Store struct {
	servers *ServerStore
	configs *PortalConfigStore
	portals *PortalStore
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	s := &Store{
		servers: &ServerStore{rows: newTable[string, domain.Server](), endpoints: make(map[string]string)},
		configs: &PortalConfigStore{rows: newTable[string, domain.PortalConfig]()},
		portals: &PortalStore{rows: newTable[uint32, domain.Portal]()},
	}
	s.configs.portals = s.portals
	s.portals.configs = s.configs
	return s
}

func (s *Store) Servers() storage.ServerStore             { return s.servers }
func (s *Store) PortalConfigs() storage.PortalConfigStore { return s.configs }
func (s *Store) Portals() storage.PortalStore             { return s.portals }
func (s *Store) Close() error                             { return nil }
func (s *Store) Ping(ctx context.Context) error           { return nil }

func persistError(err error) error {
	return fmt.Errorf("%w: persist snapshot: %v", storage.ErrDatabase, err)
}

// ServerStore implements in-memory server storage
type ServerStore struct {
	mu        sync.RWMutex
	rows      table[string, domain.Server]
	endpoints map[string]string // ip:port -> server id
	persist   persistFunc
}

func (s *ServerStore) save() error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist(s.rows.values()); err != nil {
		return persistError(err)
	}
	return nil
}

func (s *ServerStore) Create(ctx context.Context, server *domain.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows.get(server.ID); exists {
		return fmt.Errorf("%w: server %s already exists", storage.ErrConflict, server.ID)
	}
	endpoint := server.Endpoint()
	if _, taken := s.endpoints[endpoint]; taken {
		return fmt.Errorf("%w: endpoint %s is already registered", storage.ErrConflict, endpoint)
	}

	s.rows.put(server.ID, *server)
	s.endpoints[endpoint] = server.ID
	if err := s.save(); err != nil {
		s.rows.remove(server.ID)
		delete(s.endpoints, endpoint)
		return err
	}
	return nil
}

func (s *ServerStore) GetByID(ctx context.Context, id string) (*domain.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	server, exists := s.rows.get(id)
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &server, nil
}

func (s *ServerStore) GetAll(ctx context.Context) ([]*domain.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	servers := make([]*domain.Server, 0, s.rows.len())
	for _, server := range s.rows.values() {
		servers = append(servers, &server)
	}
	return servers, nil
}

func (s *ServerStore) Update(ctx context.Context, server *domain.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.rows.get(server.ID)
	if !exists {
		return storage.ErrNotFound
	}
	oldEndpoint, newEndpoint := old.Endpoint(), server.Endpoint()
	if owner, taken := s.endpoints[newEndpoint]; taken && owner != server.ID {
		return fmt.Errorf("%w: endpoint %s is already registered", storage.ErrConflict, newEndpoint)
	}

	s.rows.put(server.ID, *server)
	delete(s.endpoints, oldEndpoint)
	s.endpoints[newEndpoint] = server.ID
	if err := s.save(); err != nil {
		s.rows.put(server.ID, old)
		delete(s.endpoints, newEndpoint)
		s.endpoints[oldEndpoint] = server.ID
		return err
	}
	return nil
}

func (s *ServerStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.rows.get(id)
	if !exists {
		return storage.ErrNotFound
	}
	pos := s.rows.remove(id)
	delete(s.endpoints, old.Endpoint())
	if err := s.save(); err != nil {
		s.rows.restore(pos, id, old)
		s.endpoints[old.Endpoint()] = id
		return err
	}
	return nil
}

// PortalConfigStore implements in-memory portal config storage.
// Lock order is PortalConfigStore before PortalStore.
type PortalConfigStore struct {
	mu      sync.RWMutex
	rows    table[string, domain.PortalConfig]
	portals *PortalStore
	persist persistFunc
}

func (s *PortalConfigStore) save() error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist(s.rows.values()); err != nil {
		return persistError(err)
	}
	return nil
}

func (s *PortalConfigStore) Create(ctx context.Context, cfg *domain.PortalConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows.get(cfg.ID); exists {
		return fmt.Errorf("%w: portal config %s already exists", storage.ErrConflict, cfg.ID)
	}
	s.rows.put(cfg.ID, *cfg)
	if err := s.save(); err != nil {
		s.rows.remove(cfg.ID)
		return err
	}
	return nil
}

func (s *PortalConfigStore) GetByID(ctx context.Context, id string) (*domain.PortalConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.rows.get(id)
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &cfg, nil
}

func (s *PortalConfigStore) GetAll(ctx context.Context) ([]*domain.PortalConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := make([]*domain.PortalConfig, 0, s.rows.len())
	for _, cfg := range s.rows.values() {
		configs = append(configs, &cfg)
	}
	return configs, nil
}

func (s *PortalConfigStore) Update(ctx context.Context, cfg *domain.PortalConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.rows.get(cfg.ID)
	if !exists {
		return storage.ErrNotFound
	}
	s.rows.put(cfg.ID, *cfg)
	if err := s.save(); err != nil {
		s.rows.put(cfg.ID, old)
		return err
	}
	return nil
}

func (s *PortalConfigStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.rows.get(id)
	if !exists {
		return storage.ErrNotFound
	}
	if n := s.portals.countByConfig(id); n > 0 {
		return fmt.Errorf("%w: portal config %s is referenced by %d portal(s)", storage.ErrReferentialConflict, id, n)
	}

	pos := s.rows.remove(id)
	if err := s.save(); err != nil {
		s.rows.restore(pos, id, old)
		return err
	}
	return nil
}

// exists must be called with s.mu held
func (s *PortalConfigStore) exists(id string) bool {
	_, ok := s.rows.get(id)
	return ok
}

// PortalStore implements in-memory portal storage
type PortalStore struct {
	mu      sync.RWMutex
	rows    table[uint32, domain.Portal]
	configs *PortalConfigStore
	persist persistFunc
}

func (s *PortalStore) save() error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist(s.rows.values()); err != nil {
		return persistError(err)
	}
	return nil
}

func (s *PortalStore) countByConfig(configID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, portal := range s.rows.data {
		if portal.ConfigID == configID {
			n++
		}
	}
	return n
}

func (s *PortalStore) Create(ctx context.Context, portal *domain.Portal) error {
	s.configs.mu.RLock()
	defer s.configs.mu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows.get(portal.Index); exists {
		return fmt.Errorf("%w: portal index %d is already taken", storage.ErrConflict, portal.Index)
	}
	if !s.configs.exists(portal.ConfigID) {
		return fmt.Errorf("%w: portal config %s does not exist", storage.ErrReferentialConflict, portal.ConfigID)
	}

	s.rows.put(portal.Index, *portal)
	if err := s.save(); err != nil {
		s.rows.remove(portal.Index)
		return err
	}
	return nil
}

func (s *PortalStore) GetByID(ctx context.Context, index uint32) (*domain.Portal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	portal, exists := s.rows.get(index)
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &portal, nil
}

func (s *PortalStore) GetAll(ctx context.Context) ([]*domain.Portal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	portals := make([]*domain.Portal, 0, s.rows.len())
	for _, portal := range s.rows.values() {
		portals = append(portals, &portal)
	}
	return portals, nil
}

func (s *PortalStore) Update(ctx context.Context, portal *domain.Portal) error {
	s.configs.mu.RLock()
	defer s.configs.mu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.rows.get(portal.Index)
	if !exists {
		return storage.ErrNotFound
	}
	if !s.configs.exists(portal.ConfigID) {
		return fmt.Errorf("%w: portal config %s does not exist", storage.ErrReferentialConflict, portal.ConfigID)
	}

	s.rows.put(portal.Index, *portal)
	if err := s.save(); err != nil {
		s.rows.put(portal.Index, old)
		return err
	}
	return nil
}

func (s *PortalStore) Delete(ctx context.Context, index uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.rows.get(index)
	if !exists {
		return storage.ErrNotFound
	}
	pos := s.rows.remove(index)
	if err := s.save(); err != nil {
		s.rows.restore(pos, index, old)
		return err
	}
	return nil
}
