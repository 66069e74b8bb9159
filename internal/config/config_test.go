package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Debug {
		t.Error("Debug should default to false")
	}
	if got := cfg.Addr(); got != "127.0.0.1:5000" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:5000")
	}
	if cfg.Templates.Dir != "templates" || cfg.Templates.Index != "index.html" {
		t.Errorf("templates = %+v", cfg.Templates)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Monitoring.Addr != "" {
		t.Errorf("monitoring should be disabled by default, got %q", cfg.Monitoring.Addr)
	}
	if cfg.RateLimit.TrustProxyHeaders {
		t.Error("forwarding headers should not be trusted by default")
	}
	if cfg.Mode() != "release" {
		t.Errorf("Mode() = %q, want release", cfg.Mode())
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
debug: true
server:
  port: 6000
  read_timeout: 3s
templates:
  dir: pages
cors:
  allowed_origins:
    - https://example.com
`)

	tests := []struct {
		name     string
		env      map[string]string
		args     []string
		wantPort int
		wantDir  string
	}{
		{
			name:     "file overrides defaults",
			wantPort: 6000,
			wantDir:  "pages",
		},
		{
			name:     "env overrides file",
			env:      map[string]string{"ADVENTURE_SERVER_PORT": "7000"},
			wantPort: 7000,
			wantDir:  "pages",
		},
		{
			name:     "flags override env",
			env:      map[string]string{"ADVENTURE_SERVER_PORT": "7000"},
			args:     []string{"--port", "8000", "--templates", "views"},
			wantPort: 8000,
			wantDir:  "views",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			args := append([]string{"--config", path}, tt.args...)

			cfg, err := Load(args)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Server.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", cfg.Server.Port, tt.wantPort)
			}
			if cfg.Templates.Dir != tt.wantDir {
				t.Errorf("Templates.Dir = %q, want %q", cfg.Templates.Dir, tt.wantDir)
			}
			if !cfg.Debug {
				t.Error("Debug should be read from file")
			}
			if cfg.Server.ReadTimeout != 3*time.Second {
				t.Errorf("ReadTimeout = %v, want 3s", cfg.Server.ReadTimeout)
			}
			if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "https://example.com" {
				t.Errorf("AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
			}
		})
	}
}

func TestLoad_DebugFromEnv(t *testing.T) {
	t.Setenv("ADVENTURE_DEBUG", "true")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Debug || cfg.Mode() != "debug" {
		t.Errorf("Debug = %v, Mode() = %q", cfg.Debug, cfg.Mode())
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:    ServerConfig{Host: "127.0.0.1", Port: 5000, ShutdownTimeout: time.Second},
			Templates: TemplatesConfig{Dir: "templates", Index: "index.html"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "port too large", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "empty index", mutate: func(c *Config) { c.Templates.Index = "" }},
		{name: "empty dir", mutate: func(c *Config) { c.Templates.Dir = "" }},
		{name: "empty dir with embedded", mutate: func(c *Config) { c.Templates.Dir = ""; c.Templates.Embedded = true }, ok: true},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit.RequestsPerMinute = -1 }},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{name: "monitoring without interval", mutate: func(c *Config) { c.Monitoring.Addr = ":9090" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
