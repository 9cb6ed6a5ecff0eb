package memory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/sirosfoundation/glados-registry/internal/domain"
)

// Snapshot file names inside the data directory
const (
	ServersFile       = "servers.json"
	PortalConfigsFile = "portal_configs.json"
	PortalsFile       = "portals.json"
)

// Open creates a store backed by JSON snapshot files in dir. The directory and
// any missing snapshot files are created. Every mutation rewrites the snapshot
// of its kind before returning.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := NewStore()

	serversPath := filepath.Join(dir, ServersFile)
	servers, err := loadSnapshot[domain.Server](serversPath)
	if err != nil {
		return nil, err
	}
	for _, server := range servers {
		if _, dup := s.servers.rows.get(server.ID); dup {
			return nil, fmt.Errorf("%s: duplicate server id %s", serversPath, server.ID)
		}
		if _, dup := s.servers.endpoints[server.Endpoint()]; dup {
			return nil, fmt.Errorf("%s: duplicate endpoint %s", serversPath, server.Endpoint())
		}
		s.servers.rows.put(server.ID, server)
		s.servers.endpoints[server.Endpoint()] = server.ID
	}

	configsPath := filepath.Join(dir, PortalConfigsFile)
	configs, err := loadSnapshot[domain.PortalConfig](configsPath)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if _, dup := s.configs.rows.get(cfg.ID); dup {
			return nil, fmt.Errorf("%s: duplicate portal config id %s", configsPath, cfg.ID)
		}
		s.configs.rows.put(cfg.ID, cfg)
	}

	portalsPath := filepath.Join(dir, PortalsFile)
	portals, err := loadSnapshot[domain.Portal](portalsPath)
	if err != nil {
		return nil, err
	}
	for _, portal := range portals {
		if _, dup := s.portals.rows.get(portal.Index); dup {
			return nil, fmt.Errorf("%s: duplicate portal index %d", portalsPath, portal.Index)
		}
		if !s.configs.exists(portal.ConfigID) {
			return nil, fmt.Errorf("%s: portal %d references unknown config %s", portalsPath, portal.Index, portal.ConfigID)
		}
		s.portals.rows.put(portal.Index, portal)
	}

	s.servers.persist = snapshotWriter(serversPath)
	s.configs.persist = snapshotWriter(configsPath)
	s.portals.persist = snapshotWriter(portalsPath)
	return s, nil
}

func snapshotWriter(path string) persistFunc {
	return func(records any) error {
		return writeSnapshot(path, records)
	}
}

// loadSnapshot reads the records stored at path, creating an empty snapshot if
// the file does not exist yet.
func loadSnapshot[V any](path string) ([]V, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeSnapshot(path, []V{}); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []V
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

// writeSnapshot replaces path atomically via a synced temp file and rename.
func writeSnapshot(path string, records any) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return nil
}
