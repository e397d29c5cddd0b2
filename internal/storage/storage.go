// Package storage persists exported service data and snapshot metadata.
//
// Two backends exist: the local filesystem (a directory tree where each
// bucket is a subdirectory) and S3. The backend is selected by the typed
// archive configuration (type: local|s3).
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Client is the storage backend contract. Buckets are flat namespaces;
// object names may contain slashes.
type Client interface {
	// List returns the object names present in bucket.
	List(ctx context.Context, bucket string) ([]string, error)
	// Get reads one object.
	Get(ctx context.Context, bucket, name string) ([]byte, error)
	// Upload writes data as the named object.
	Upload(ctx context.Context, bucket, name string, data []byte) error
	// UploadDir stores every file under dir, keyed by relative path.
	UploadDir(ctx context.Context, bucket, dir string) error
	// Download materializes every object under prefix into dir, with the
	// prefix stripped from the destination paths. An empty prefix selects
	// the whole bucket.
	Download(ctx context.Context, bucket, prefix, dir string) error
}

// S3Config configures the S3 backend. Empty credentials fall back to the
// SDK default chain (env, shared config, IRSA inside a cluster).
type S3Config struct {
	AccessKeyID     string `json:"aws_access_key_id"`
	SecretAccessKey string `json:"aws_secret_access_key"`
	Region          string `json:"region"`
}

// LocalConfig configures the filesystem backend.
type LocalConfig struct {
	BaseDir string `json:"base_dir"`
}

// Config is the archive service configuration.
type Config struct {
	Type  string       `json:"type"`
	S3    *S3Config    `json:"s3,omitempty"`
	Local *LocalConfig `json:"local,omitempty"`
}

const (
	TypeLocal = "local"
	TypeS3    = "s3"

	defaultRegion  = "us-east-1"
	defaultBaseDir = "/tmp"
)

// ParseConfig decodes a raw configuration map into a validated Config.
func ParseConfig(raw map[string]any) (Config, error) {
	cfg := Config{Type: TypeLocal}
	data, err := json.Marshal(raw)
	if err != nil {
		return Config{}, fmt.Errorf("encode archive config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode archive config: %w", err)
	}
	if strings.TrimSpace(cfg.Type) == "" {
		cfg.Type = TypeLocal
	}
	switch cfg.Type {
	case TypeLocal:
		if cfg.Local == nil {
			cfg.Local = &LocalConfig{}
		}
		if cfg.Local.BaseDir == "" {
			cfg.Local.BaseDir = defaultBaseDir
		}
	case TypeS3:
		if cfg.S3 == nil {
			cfg.S3 = &S3Config{}
		}
		if cfg.S3.Region == "" {
			cfg.S3.Region = defaultRegion
		}
	default:
		return Config{}, fmt.Errorf("invalid configuration for type: %s", cfg.Type)
	}
	return cfg, nil
}

// underPrefix reports whether name lives under prefix and returns the
// remainder. An empty prefix matches everything.
func underPrefix(name, prefix string) (string, bool) {
	if prefix == "" {
		return name, true
	}
	return strings.CutPrefix(name, prefix+"/")
}

// New constructs the client selected by cfg.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Type {
	case TypeLocal:
		return NewLocal(cfg.Local.BaseDir), nil
	case TypeS3:
		return NewS3(ctx, *cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
