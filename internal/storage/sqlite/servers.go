package sqlite

import (
	"context"
	"database/sql"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/storage"
)

// ServerStore implements storage.ServerStore
type ServerStore struct {
	db *sql.DB
	w  *writer
}

func (s *ServerStore) Create(ctx context.Context, server *domain.Server) error {
	_, err := s.w.exec(ctx,
		`INSERT INTO servers (id, name, ip, port) VALUES (?, ?, ?, ?)`,
		server.ID, server.Name, server.IP, int(server.Port))
	return err
}

func (s *ServerStore) GetByID(ctx context.Context, id string) (*domain.Server, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, ip, port FROM servers WHERE id = ?`, id)
	server, err := scanServer(row)
	if err != nil {
		return nil, queryError(err)
	}
	return server, nil
}

func (s *ServerStore) GetAll(ctx context.Context) ([]*domain.Server, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, ip, port FROM servers ORDER BY rowid`)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	servers := []*domain.Server{}
	for rows.Next() {
		server, err := scanServer(rows)
		if err != nil {
			return nil, queryError(err)
		}
		servers = append(servers, server)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	return servers, nil
}

func (s *ServerStore) Update(ctx context.Context, server *domain.Server) error {
	n, err := s.w.exec(ctx,
		`UPDATE servers SET name = ?, ip = ?, port = ? WHERE id = ?`,
		server.Name, server.IP, int(server.Port), server.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *ServerStore) Delete(ctx context.Context, id string) error {
	n, err := s.w.exec(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanServer(row scanner) (*domain.Server, error) {
	var server domain.Server
	var port int
	if err := row.Scan(&server.ID, &server.Name, &server.IP, &port); err != nil {
		return nil, err
	}
	server.Port = uint16(port)
	return &server, nil
}
