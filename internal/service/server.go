package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/status"
	"github.com/sirosfoundation/glados-registry/internal/storage"
)

// ServerService provides server registration and liveness operations
type ServerService struct {
	store       storage.Store
	checker     *status.Checker
	concurrency int
	logger      *zap.Logger
}

// NewServerService creates a new server service. concurrency bounds the
// number of parallel probes issued by StatusAll.
func NewServerService(store storage.Store, checker *status.Checker, concurrency int, logger *zap.Logger) *ServerService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ServerService{
		store:       store,
		checker:     checker,
		concurrency: concurrency,
		logger:      logger,
	}
}

// pathID canonicalises an identifier taken from a request path. A malformed
// identifier cannot name an existing record, so it is reported as not found.
func pathID(id string) (string, error) {
	canonical, err := domain.ParseID("id", id)
	if err != nil {
		return "", storage.ErrNotFound
	}
	return canonical, nil
}

// List returns all servers in registration order
func (s *ServerService) List(ctx context.Context) ([]*domain.Server, error) {
	return s.store.Servers().GetAll(ctx)
}

// Get retrieves a server by ID
func (s *ServerService) Get(ctx context.Context, id string) (*domain.Server, error) {
	id, err := pathID(id)
	if err != nil {
		return nil, err
	}
	return s.store.Servers().GetByID(ctx, id)
}

// Register validates and stores a new server. An ID is generated when the
// caller does not supply one.
func (s *ServerService) Register(ctx context.Context, server *domain.Server) (*domain.Server, error) {
	if server.ID == "" {
		server.ID = domain.NewServerID()
	}
	if err := server.Normalize(); err != nil {
		return nil, err
	}

	if err := s.store.Servers().Create(ctx, server); err != nil {
		s.logger.Error("Failed to register server",
			zap.String("server_id", server.ID),
			zap.String("address", server.Address()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Registered server",
		zap.String("server_id", server.ID),
		zap.String("name", server.Name),
		zap.String("address", server.Address()))

	registered := *server
	return &registered, nil
}

// Update replaces the mutable fields of the server identified by id.
// A body ID that differs from id is rejected.
func (s *ServerService) Update(ctx context.Context, id string, server *domain.Server) (*domain.Server, error) {
	id, err := pathID(id)
	if err != nil {
		return nil, err
	}
	if server.ID != "" {
		bodyID, err := domain.ParseID("id", server.ID)
		if err != nil {
			return nil, err
		}
		if bodyID != id {
			return nil, domain.NewValidationError("id", "is immutable")
		}
	}
	server.ID = id
	if err := server.Normalize(); err != nil {
		return nil, err
	}

	if err := s.store.Servers().Update(ctx, server); err != nil {
		s.logger.Error("Failed to update server",
			zap.String("server_id", id),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Updated server",
		zap.String("server_id", id),
		zap.String("address", server.Address()))

	updated := *server
	return &updated, nil
}

// Unregister deletes a server
func (s *ServerService) Unregister(ctx context.Context, id string) error {
	id, err := pathID(id)
	if err != nil {
		return err
	}

	if err := s.store.Servers().Delete(ctx, id); err != nil {
		s.logger.Error("Failed to unregister server",
			zap.String("server_id", id),
			zap.Error(err))
		return err
	}

	s.logger.Info("Unregistered server", zap.String("server_id", id))
	return nil
}

// Status probes a single server. No store lock is held during the probe.
func (s *ServerService) Status(ctx context.Context, id string) (*domain.StatusReport, error) {
	server, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	report := s.probe(ctx, server)
	return &report, nil
}

// StatusAll probes every registered server concurrently and returns the
// reports in list order.
func (s *ServerService) StatusAll(ctx context.Context) ([]*domain.StatusReport, error) {
	servers, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]*domain.StatusReport, len(servers))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, server := range servers {
		g.Go(func() error {
			report := s.probe(ctx, server)
			reports[i] = &report
			return nil
		})
	}
	_ = g.Wait()

	return reports, nil
}

func (s *ServerService) probe(ctx context.Context, server *domain.Server) domain.StatusReport {
	verdict := s.checker.Check(ctx, server, 0)
	s.logger.Debug("Checked server status",
		zap.String("server_id", server.ID),
		zap.String("status", string(verdict.Status)),
		zap.Duration("latency", verdict.Latency))
	return domain.StatusReport{
		ServerID:  server.ID,
		Verdict:   verdict,
		CheckedAt: time.Now().UTC(),
	}
}
