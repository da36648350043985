package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type testAppConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Provider      struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"provider"`
}

type fakeFS struct {
	files   map[string]bool
	envLoad []string
}

func (f *fakeFS) Exists(path string) bool { return f.files[path] }
func (f *fakeFS) LoadEnv(path string) error {
	f.envLoad = append(f.envLoad, path)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestServiceConfig_ApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" || !cfg.Debug {
			t.Errorf("unexpected defaults %+v", cfg)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected logging defaults, got %+v", cfg.Logging)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if !cfg.IsProduction() {
			t.Error("expected IsProduction")
		}
	})
}

func TestServiceConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"bad environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: transcribe
environment: staging
provider:
  base_url: https://api.example.com
`)
	var cfg testAppConfig
	if err := LoadConfig("transcribe", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "transcribe" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.Provider.BaseURL != "https://api.example.com" {
		t.Errorf("unexpected base url %q", cfg.Provider.BaseURL)
	}
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: transcribe
provider:
  api_key: from-file
`)
	t.Setenv("PROVIDER_API_KEY", "from-env")

	var cfg testAppConfig
	if err := LoadConfig("transcribe", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Provider.APIKey != "from-env" {
		t.Errorf("expected env override, got %q", cfg.Provider.APIKey)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yml", "name: transcribe\n")
	envPath := writeFile(t, dir, ".env", "PROVIDER_BASE_URL=http://from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("PROVIDER_BASE_URL") })

	var cfg testAppConfig
	if err := LoadConfig("transcribe", &cfg, WithConfigFile(cfgPath), WithEnvFile(envPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Provider.BaseURL != "http://from-dotenv" {
		t.Errorf("expected value from .env, got %q", cfg.Provider.BaseURL)
	}
}

func TestLoadConfig_SearchesCandidates(t *testing.T) {
	fs := &fakeFS{files: map[string]bool{"./.env": true}}
	var cfg testAppConfig
	if err := LoadConfig("transcribe", &cfg, WithFileSystem(fs)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(fs.envLoad) != 1 || fs.envLoad[0] != "./.env" {
		t.Errorf("expected ./.env to be loaded, got %v", fs.envLoad)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: [unterminated\n")
	var cfg testAppConfig
	if err := LoadConfig("transcribe", &cfg, WithConfigFile(path)); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("SERVER_READ_TIMEOUT")
	if len(got) != 3 {
		t.Errorf("expected 3 variants, got %v", got)
	}
	for _, want := range []string{"server_read_timeout", "server.read_timeout", "server.read.timeout"} {
		if !slices.Contains(got, want) {
			t.Errorf("missing variant %q in %v", want, got)
		}
	}
}
