package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/remessasegura/backend/internal/core"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// MinQuotesTTL is the lower bound for caching live currency quotes.
const MinQuotesTTL = 5 * time.Minute

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Cache     CacheConfig     `mapstructure:"cache"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	App       AppConfig       `mapstructure:"app"`
	Reset     ResetConfig     `mapstructure:"reset"`
	Media     MediaConfig     `mapstructure:"media"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// CORSOrigins entries may start with "*." to allow any subdomain.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	// DSN empty selects the in-memory store.
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

type JWTConfig struct {
	Key      string `mapstructure:"key"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

type ProvidersConfig struct {
	AwesomeAPI ProviderConfig `mapstructure:"awesomeapi"`
	Brapi      ProviderConfig `mapstructure:"brapi"`
}

type ProviderConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Active reports whether the provider should be constructed.
func (p ProviderConfig) Active() bool {
	return p.Enabled && p.BaseURL != ""
}

type CacheConfig struct {
	QuotesTTL  time.Duration `mapstructure:"quotes_ttl"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
	RatesTTL   time.Duration `mapstructure:"rates_ttl"`
	StocksTTL  time.Duration `mapstructure:"stocks_ttl"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	From        string `mapstructure:"from"`
	FromName    string `mapstructure:"from_name"`
	ImplicitTLS bool   `mapstructure:"implicit_tls"`

	// AllowInsecure permits plaintext delivery to servers without STARTTLS.
	AllowInsecure bool `mapstructure:"allow_insecure"`
}

type AppConfig struct {
	FrontendBaseURL string `mapstructure:"frontend_base_url"`
}

// ResetConfig holds password-reset housekeeping settings.
type ResetConfig struct {
	// CleanupSchedule is a cron spec; empty disables the sweeper.
	CleanupSchedule string `mapstructure:"cleanup_schedule"`
}

type MediaConfig struct {
	Type          string   `mapstructure:"type"` // "localfs" or "s3"
	Path          string   `mapstructure:"path"` // For localfs
	PublicBaseURL string   `mapstructure:"public_base_url"`
	S3            S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// envAliases maps config keys to extra environment variable names.
var envAliases = map[string][]string{
	"jwt.key":                 {"JWT_KEY", "JWT_SECRET"},
	"database.dsn":            {"DATABASE_DSN", "DATABASE_URL"},
	"providers.brapi.api_key": {"PROVIDERS_BRAPI_API_KEY", "BRAPI_TOKEN"},
	"smtp.password":           {"SMTP_PASSWORD", "SMTP_PASS"},
	"app.frontend_base_url":   {"APP_FRONTEND_BASE_URL", "FRONTEND_BASE_URL"},
}

// Load reads configuration from file. An empty path loads defaults and the
// environment only. A .env file in the working directory is applied first
// without overriding variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent
// from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_conns", d.Database.MaxConns)
	v.SetDefault("jwt.key", d.JWT.Key)
	v.SetDefault("jwt.issuer", d.JWT.Issuer)
	v.SetDefault("jwt.audience", d.JWT.Audience)
	for name, p := range map[string]ProviderConfig{
		"awesomeapi": d.Providers.AwesomeAPI,
		"brapi":      d.Providers.Brapi,
	} {
		prefix := "providers." + name + "."
		v.SetDefault(prefix+"enabled", p.Enabled)
		v.SetDefault(prefix+"base_url", p.BaseURL)
		v.SetDefault(prefix+"api_key", p.APIKey)
		v.SetDefault(prefix+"timeout", p.Timeout)
	}
	v.SetDefault("cache.quotes_ttl", d.Cache.QuotesTTL)
	v.SetDefault("cache.history_ttl", d.Cache.HistoryTTL)
	v.SetDefault("cache.rates_ttl", d.Cache.RatesTTL)
	v.SetDefault("cache.stocks_ttl", d.Cache.StocksTTL)
	v.SetDefault("smtp.host", d.SMTP.Host)
	v.SetDefault("smtp.port", d.SMTP.Port)
	v.SetDefault("smtp.username", d.SMTP.Username)
	v.SetDefault("smtp.password", d.SMTP.Password)
	v.SetDefault("smtp.from", d.SMTP.From)
	v.SetDefault("smtp.from_name", d.SMTP.FromName)
	v.SetDefault("smtp.implicit_tls", d.SMTP.ImplicitTLS)
	v.SetDefault("smtp.allow_insecure", d.SMTP.AllowInsecure)
	v.SetDefault("app.frontend_base_url", d.App.FrontendBaseURL)
	v.SetDefault("reset.cleanup_schedule", d.Reset.CleanupSchedule)
	v.SetDefault("media.type", d.Media.Type)
	v.SetDefault("media.path", d.Media.Path)
	v.SetDefault("media.public_base_url", d.Media.PublicBaseURL)
	v.SetDefault("media.s3.bucket", d.Media.S3.Bucket)
	v.SetDefault("media.s3.endpoint", d.Media.S3.Endpoint)
	v.SetDefault("media.s3.region", d.Media.S3.Region)
	v.SetDefault("media.s3.access_key", d.Media.S3.AccessKey)
	v.SetDefault("media.s3.secret_key", d.Media.S3.SecretKey)
	v.SetDefault("media.s3.prefix", d.Media.S3.Prefix)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			Mode:         "release",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 45 * time.Second,
			CORSOrigins: []string{
				"localhost",
				"https://bancoocorrencia.com",
				"*.bancoocorrencia.com",
				"*.koyeb.app",
			},
		},
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		JWT: JWTConfig{
			Issuer:   "remessa-segura",
			Audience: "remessa-segura-portal",
		},
		Providers: ProvidersConfig{
			AwesomeAPI: ProviderConfig{
				Enabled: true,
				BaseURL: "https://economia.awesomeapi.com.br",
				Timeout: 15 * time.Second,
			},
			Brapi: ProviderConfig{
				Enabled: true,
				BaseURL: "https://brapi.dev/api",
				Timeout: 30 * time.Second,
			},
		},
		Cache: CacheConfig{
			QuotesTTL:  MinQuotesTTL,
			HistoryTTL: 5 * time.Minute,
			RatesTTL:   5 * time.Minute,
			StocksTTL:  time.Minute,
		},
		SMTP: SMTPConfig{
			Port:        465,
			FromName:    "Remessa Segura",
			ImplicitTLS: true,
		},
		App: AppConfig{
			FrontendBaseURL: "http://localhost:4200",
		},
		Media: MediaConfig{
			Type:          "localfs",
			Path:          "data/media",
			PublicBaseURL: "/media",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Token signing material is mandatory
	if c.JWT.Key == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("jwt.key is required"))
	}
	if len(c.JWT.Key) < 32 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("jwt.key must be at least 32 bytes, got %d", len(c.JWT.Key)))
	}
	if c.JWT.Issuer == "" || c.JWT.Audience == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("jwt.issuer and jwt.audience are required"))
	}

	if c.Cache.QuotesTTL < MinQuotesTTL {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("cache.quotes_ttl must be at least %s, got %s", MinQuotesTTL, c.Cache.QuotesTTL))
	}
	for name, ttl := range map[string]time.Duration{
		"history_ttl": c.Cache.HistoryTTL,
		"rates_ttl":   c.Cache.RatesTTL,
		"stocks_ttl":  c.Cache.StocksTTL,
	} {
		if ttl <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("cache.%s must be positive, got %s", name, ttl))
		}
	}

	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("smtp.from required when smtp.host is set"))
	}

	if c.Reset.CleanupSchedule != "" {
		if _, err := cron.ParseStandard(c.Reset.CleanupSchedule); err != nil {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("reset.cleanup_schedule %q: %w", c.Reset.CleanupSchedule, err))
		}
	}

	switch c.Media.Type {
	case "localfs":
		if c.Media.Path == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("media.path required for localfs"))
		}
	case "s3":
		if c.Media.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("media.s3.bucket required for s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("media.type must be localfs or s3, got %q", c.Media.Type))
	}

	return nil
}
