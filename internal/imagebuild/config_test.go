package imagebuild

import (
	"errors"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"IMAGE_NAME", "IMAGE_TAG", "REGISTRY", "DOCKERFILE", "USER_NO"} {
		t.Setenv(k, "")
		t.Setenv("ENV_"+k, "")
	}

	cfg := FromEnv()
	if cfg.ImageName != "backup_restore" {
		t.Errorf("ImageName = %q; want backup_restore", cfg.ImageName)
	}
	if cfg.ImageTag != "latest" {
		t.Errorf("ImageTag = %q; want latest", cfg.ImageTag)
	}
	if cfg.Registry != "" {
		t.Errorf("Registry = %q; want empty", cfg.Registry)
	}
	if cfg.Dockerfile != "Dockerfile" {
		t.Errorf("Dockerfile = %q; want Dockerfile", cfg.Dockerfile)
	}
	if cfg.UserNo != "1000" {
		t.Errorf("UserNo = %q; want 1000", cfg.UserNo)
	}
}

func TestFromEnvPrefixedWins(t *testing.T) {
	t.Setenv("IMAGE_NAME", "plain")
	t.Setenv("ENV_IMAGE_NAME", "prefixed")
	t.Setenv("ENV_IMAGE_TAG", "")
	t.Setenv("IMAGE_TAG", "v2")

	cfg := FromEnv()
	if cfg.ImageName != "prefixed" {
		t.Errorf("ImageName = %q; want prefixed (ENV_ override)", cfg.ImageName)
	}
	if cfg.ImageTag != "v2" {
		t.Errorf("ImageTag = %q; want v2 (bare fallback)", cfg.ImageTag)
	}
}

func TestFullRefConcatenation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "documented scenario",
			cfg:  Config{Registry: "registry.example.com", ImageName: "myapp", ImageTag: "v1"},
			want: "registry.example.com/myapp:v1",
		},
		{
			name: "no normalization of trailing slash",
			cfg:  Config{Registry: "reg/", ImageName: "app", ImageTag: "t"},
			want: "reg//app:t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.FullRef(); got != tt.want {
				t.Errorf("FullRef() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestValidateRegistry(t *testing.T) {
	cfg := Config{ImageName: "app", ImageTag: "latest"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty registry")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Key != "REGISTRY" {
		t.Errorf("Key = %q; want REGISTRY", cfgErr.Key)
	}

	cfg.Registry = "registry.example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error with registry set: %v", err)
	}
}
