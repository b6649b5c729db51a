package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/remessasegura/backend/internal/core"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoad_FromFile(t *testing.T) {
	t.Chdir(t.TempDir())

	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090

jwt:
  key: "` + testKey + `"

providers:
  brapi:
    api_key: "brapi-token"
    timeout: 5s

media:
  type: localfs
  path: "/tmp/remessa/media"
`)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Providers.Brapi.APIKey != "brapi-token" {
		t.Errorf("expected brapi api key, got %q", cfg.Providers.Brapi.APIKey)
	}
	if cfg.Providers.Brapi.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.Providers.Brapi.Timeout)
	}
	// Keys absent from the file keep their defaults
	if cfg.Providers.AwesomeAPI.BaseURL != "https://economia.awesomeapi.com.br" {
		t.Errorf("expected default awesomeapi url, got %q", cfg.Providers.AwesomeAPI.BaseURL)
	}
	if cfg.Cache.QuotesTTL != MinQuotesTTL {
		t.Errorf("expected default quotes ttl, got %s", cfg.Cache.QuotesTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected loaded config to validate: %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_KEY", testKey)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("BRAPI_TOKEN", "from-alias")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.JWT.Key != testKey {
		t.Errorf("expected jwt key from env, got %q", cfg.JWT.Key)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Providers.Brapi.APIKey != "from-alias" {
		t.Errorf("expected brapi key from alias, got %q", cfg.Providers.Brapi.APIKey)
	}
}

func TestLoad_ExpandsEnvPlaceholders(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MY_SMTP_SECRET", "s3cret")

	content := []byte(`
smtp:
  host: smtp.example.com
  from: no-reply@example.com
  password: "${MY_SMTP_SECRET}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.SMTP.Password != "s3cret" {
		t.Errorf("expected expanded password, got %q", cfg.SMTP.Password)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DATABASE_URL=postgres://env/db\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("DATABASE_URL") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Database.DSN != "postgres://env/db" {
		t.Errorf("expected dsn from .env, got %q", cfg.Database.DSN)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.App.FrontendBaseURL != "http://localhost:4200" {
		t.Errorf("unexpected frontend url %q", cfg.App.FrontendBaseURL)
	}
	if cfg.SMTP.Port != 465 || !cfg.SMTP.ImplicitTLS {
		t.Errorf("expected implicit TLS on 465, got port %d tls %v", cfg.SMTP.Port, cfg.SMTP.ImplicitTLS)
	}
	if cfg.SMTP.AllowInsecure {
		t.Error("expected plaintext smtp refused by default")
	}
	if cfg.Reset.CleanupSchedule != "" {
		t.Error("expected reset sweeper disabled by default")
	}
}

func TestProviderConfig_Active(t *testing.T) {
	if !(ProviderConfig{Enabled: true, BaseURL: "https://x"}).Active() {
		t.Error("expected enabled provider with url to be active")
	}
	if (ProviderConfig{Enabled: true}).Active() {
		t.Error("expected provider without url to be inactive")
	}
	if (ProviderConfig{BaseURL: "https://x"}).Active() {
		t.Error("expected disabled provider to be inactive")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Defaults()
		cfg.JWT.Key = testKey
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr *core.Error
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "invalid port - zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: core.ErrConfigInvalid},
		{name: "invalid port - too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: core.ErrConfigInvalid},
		{name: "missing jwt key", mutate: func(c *Config) { c.JWT.Key = "" }, wantErr: core.ErrConfigMissing},
		{name: "short jwt key", mutate: func(c *Config) { c.JWT.Key = "short" }, wantErr: core.ErrConfigInvalid},
		{name: "missing audience", mutate: func(c *Config) { c.JWT.Audience = "" }, wantErr: core.ErrConfigMissing},
		{name: "quotes ttl below floor", mutate: func(c *Config) { c.Cache.QuotesTTL = 30 * time.Second }, wantErr: core.ErrConfigInvalid},
		{name: "zero rates ttl", mutate: func(c *Config) { c.Cache.RatesTTL = 0 }, wantErr: core.ErrConfigInvalid},
		{name: "smtp without from", mutate: func(c *Config) { c.SMTP.Host = "smtp.example.com" }, wantErr: core.ErrConfigMissing},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Media.Type = "s3" }, wantErr: core.ErrConfigMissing},
		{name: "cron descriptor schedule", mutate: func(c *Config) { c.Reset.CleanupSchedule = "@every 1h" }},
		{name: "five-field schedule", mutate: func(c *Config) { c.Reset.CleanupSchedule = "0 3 * * *" }},
		{name: "malformed schedule", mutate: func(c *Config) { c.Reset.CleanupSchedule = "every now and then" }, wantErr: core.ErrConfigInvalid},
		{name: "unknown media type", mutate: func(c *Config) { c.Media.Type = "ftp" }, wantErr: core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
