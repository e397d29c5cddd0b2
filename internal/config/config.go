// Package config loads per-service configuration.
//
// Two layouts are supported inside the configuration directory:
//
//   - services.yaml: one document keyed by service name. Takes precedence
//     over everything else when present. Not a good place for secrets.
//   - <service>.json: one file per service.
//
// The directory defaults to CONFIG_DIR, falling back to "config".
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"backuprestore/internal/logging"
)

// Store holds the raw configuration maps for every known service.
type Store struct {
	Dir string

	services map[string]map[string]any
}

// Dir resolves the configuration directory from the environment.
func Dir() string {
	if v := strings.TrimSpace(os.Getenv("CONFIG_DIR")); v != "" {
		return v
	}
	return "config"
}

// Load reads the configuration directory. A missing directory is not an
// error; services then run with empty configuration and fail their own
// validation if they need settings.
func Load(dir string, logger *slog.Logger) (*Store, error) {
	logger = logging.Ensure(logger)
	store := &Store{Dir: dir, services: map[string]map[string]any{}}

	yamlPath := filepath.Join(dir, "services.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		logger.Warn("found services.yaml; it takes precedence over individual JSON files, avoid storing secrets in it",
			"path", yamlPath)
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, &store.services); err != nil {
			return nil, fmt.Errorf("parse %s: %w", yamlPath, err)
		}
		return store, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("configuration directory missing, running with empty config", "dir", dir)
			return store, nil
		}
		return nil, fmt.Errorf("read config dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var cfg map[string]any
		if err := json.Unmarshal(data, &cfg); err != nil {
			// Match the original behavior: a broken file is skipped with a
			// warning, not fatal for the whole directory.
			logger.Warn("skipping unparseable config file", "path", path, "error", err)
			continue
		}
		store.services[strings.TrimSuffix(name, ".json")] = cfg
	}
	return store, nil
}

// Service returns the raw configuration map for name, never nil.
func (s *Store) Service(name string) map[string]any {
	if cfg, ok := s.services[name]; ok && cfg != nil {
		return cfg
	}
	return map[string]any{}
}

// Decode unmarshals the named service's configuration into out via its
// JSON tags.
func (s *Store) Decode(name string, out any) error {
	data, err := json.Marshal(s.Service(name))
	if err != nil {
		return fmt.Errorf("re-encode config for %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode config for %s: %w", name, err)
	}
	return nil
}
