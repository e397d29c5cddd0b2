// Package imagebuild drives the container image lifecycle for the
// backup-restore-server image: build, tag, push, run and clean, plus the
// composite release flow.
//
// Configuration is pure derivation from the process environment, resolved
// once per invocation. The one hard precondition is a non-empty registry:
// without it no docker command is ever issued.
package imagebuild

import (
	"fmt"
	"os"
	"strings"
)

const (
	DefaultImageName  = "backup_restore"
	DefaultImageTag   = "latest"
	DefaultDockerfile = "Dockerfile"
	DefaultUserNo     = "1000"
)

// Config holds the resolved build settings.
type Config struct {
	ImageName  string
	ImageTag   string
	Registry   string
	Dockerfile string

	// UserNo is the numeric UID/GID baked into the dev image (build arg
	// user_no).
	UserNo string
}

// ConfigError reports a missing required setting. It is raised before any
// docker invocation.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s must be set and non-empty (set ENV_%s or %s)", e.Key, e.Key, e.Key)
}

// FromEnv resolves the configuration from the environment. ENV_-prefixed
// variables win over their bare counterparts; unset values fall back to the
// documented defaults.
func FromEnv() Config {
	return Config{
		ImageName:  envOr("IMAGE_NAME", DefaultImageName),
		ImageTag:   envOr("IMAGE_TAG", DefaultImageTag),
		Registry:   envOr("REGISTRY", ""),
		Dockerfile: envOr("DOCKERFILE", DefaultDockerfile),
		UserNo:     envOr("USER_NO", DefaultUserNo),
	}
}

// LocalRef is the local image tag, IMAGE_NAME:IMAGE_TAG.
func (c Config) LocalRef() string {
	return c.ImageName + ":" + c.ImageTag
}

// FullRef is the fully-qualified registry reference,
// REGISTRY/IMAGE_NAME:IMAGE_TAG. Plain concatenation, no normalization.
func (c Config) FullRef() string {
	return c.Registry + "/" + c.LocalRef()
}

// Validate enforces the registry precondition shared by every operation.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Registry) == "" {
		return &ConfigError{Key: "REGISTRY"}
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv("ENV_" + key)); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
