package sqlite

import (
	"context"
	"database/sql"

	"github.com/sirosfoundation/glados-registry/internal/domain"
	"github.com/sirosfoundation/glados-registry/internal/storage"
)

// PortalConfigStore implements storage.PortalConfigStore
type PortalConfigStore struct {
	db *sql.DB
	w  *writer
}

func (s *PortalConfigStore) Create(ctx context.Context, cfg *domain.PortalConfig) error {
	_, err := s.w.exec(ctx,
		`INSERT INTO portal_configs (id, name, description, destination, enabled) VALUES (?, ?, ?, ?, ?)`,
		cfg.ID, cfg.Name, cfg.Description, cfg.Destination, cfg.Enabled)
	return err
}

func (s *PortalConfigStore) GetByID(ctx context.Context, id string) (*domain.PortalConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, destination, enabled FROM portal_configs WHERE id = ?`, id)
	cfg, err := scanPortalConfig(row)
	if err != nil {
		return nil, queryError(err)
	}
	return cfg, nil
}

func (s *PortalConfigStore) GetAll(ctx context.Context) ([]*domain.PortalConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, destination, enabled FROM portal_configs ORDER BY rowid`)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	configs := []*domain.PortalConfig{}
	for rows.Next() {
		cfg, err := scanPortalConfig(rows)
		if err != nil {
			return nil, queryError(err)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	return configs, nil
}

func (s *PortalConfigStore) Update(ctx context.Context, cfg *domain.PortalConfig) error {
	n, err := s.w.exec(ctx,
		`UPDATE portal_configs SET name = ?, description = ?, destination = ?, enabled = ? WHERE id = ?`,
		cfg.Name, cfg.Description, cfg.Destination, cfg.Enabled, cfg.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete relies on the ON DELETE RESTRICT foreign key to refuse referenced configs
func (s *PortalConfigStore) Delete(ctx context.Context, id string) error {
	n, err := s.w.exec(ctx, `DELETE FROM portal_configs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanPortalConfig(row scanner) (*domain.PortalConfig, error) {
	var cfg domain.PortalConfig
	if err := row.Scan(&cfg.ID, &cfg.Name, &cfg.Description, &cfg.Destination, &cfg.Enabled); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PortalStore implements storage.PortalStore
type PortalStore struct {
	db *sql.DB
	w  *writer
}

const portalColumns = `idx, frame_block_id, light_with_item_id, color_b, color_g, color_r, config_id`

func (s *PortalStore) Create(ctx context.Context, portal *domain.Portal) error {
	_, err := s.w.exec(ctx,
		`INSERT INTO portals (`+portalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(portal.Index), portal.FrameBlockID, portal.LightWithItemID,
		int(portal.ColorB), int(portal.ColorG), int(portal.ColorR), portal.ConfigID)
	return err
}

func (s *PortalStore) GetByID(ctx context.Context, index uint32) (*domain.Portal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+portalColumns+` FROM portals WHERE idx = ?`, int64(index))
	portal, err := scanPortal(row)
	if err != nil {
		return nil, queryError(err)
	}
	return portal, nil
}

func (s *PortalStore) GetAll(ctx context.Context) ([]*domain.Portal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+portalColumns+` FROM portals ORDER BY rowid`)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	portals := []*domain.Portal{}
	for rows.Next() {
		portal, err := scanPortal(rows)
		if err != nil {
			return nil, queryError(err)
		}
		portals = append(portals, portal)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	return portals, nil
}

func (s *PortalStore) Update(ctx context.Context, portal *domain.Portal) error {
	n, err := s.w.exec(ctx,
		`UPDATE portals SET frame_block_id = ?, light_with_item_id = ?, color_b = ?, color_g = ?, color_r = ?, config_id = ?
		WHERE idx = ?`,
		portal.FrameBlockID, portal.LightWithItemID,
		int(portal.ColorB), int(portal.ColorG), int(portal.ColorR), portal.ConfigID,
		int64(portal.Index))
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PortalStore) Delete(ctx context.Context, index uint32) error {
	n, err := s.w.exec(ctx, `DELETE FROM portals WHERE idx = ?`, int64(index))
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanPortal(row scanner) (*domain.Portal, error) {
	var portal domain.Portal
	var index int64
	var b, g, r int
	if err := row.Scan(&index, &portal.FrameBlockID, &portal.LightWithItemID, &b, &g, &r, &portal.ConfigID); err != nil {
		return nil, err
	}
	portal.Index = uint32(index)
	portal.ColorB, portal.ColorG, portal.ColorR = uint8(b), uint8(g), uint8(r)
	return &portal, nil
}
