// Package app wires configuration into the running portal backend.
package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/remessasegura/backend/internal/api"
	"github.com/remessasegura/backend/internal/auth"
	"github.com/remessasegura/backend/internal/collector"
	"github.com/remessasegura/backend/internal/collector/awesomeapi"
	"github.com/remessasegura/backend/internal/collector/brapi"
	"github.com/remessasegura/backend/internal/config"
	"github.com/remessasegura/backend/internal/market"
	"github.com/remessasegura/backend/internal/metrics"
	"github.com/remessasegura/backend/internal/notifier/email"
	"github.com/remessasegura/backend/internal/storage"
	"github.com/remessasegura/backend/internal/storage/media"
	"github.com/remessasegura/backend/internal/storage/memory"
	"github.com/remessasegura/backend/internal/storage/postgres"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// Options tune construction beyond what the config file holds.
type Options struct {
	Version string
	// Migrate applies the schema after connecting to PostgreSQL.
	Migrate bool
}

// App is the main application orchestrator
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry
	repos   storage.Repositories
	users   *auth.UserAdmin
	server  *api.Server
	sweeper *auth.Sweeper

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New builds every component from cfg. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	repos, err := openStorage(ctx, cfg.Database, logger, opts.Migrate)
	if err != nil {
		return nil, err
	}
	a.repos = repos

	if err := a.build(cfg, opts.Version); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config, version string) error {
	logger := a.logger

	mkt := market.New(primaryProvider(cfg.Providers.AwesomeAPI), secondaryProvider(cfg.Providers.Brapi),
		market.WithLogger(logger.Named("market")),
		market.WithMetrics(marketMetrics(a.metrics)),
		market.WithTTLs(market.TTLs{
			Quotes:  cfg.Cache.QuotesTTL,
			History: cfg.Cache.HistoryTTL,
			Rates:   cfg.Cache.RatesTTL,
			Stocks:  cfg.Cache.StocksTTL,
		}),
	)

	store, files, prefix, err := openMedia(cfg.Media)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenManager(cfg.JWT.Key, cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}
	authOpts := []auth.Option{auth.WithLogger(logger.Named("auth"))}
	if a.metrics != nil {
		authOpts = append(authOpts, auth.WithMetrics(a.metrics))
	}

	login := auth.NewService(a.repos.Users, a.repos.Permissions, tokens, authOpts...)
	reset := auth.NewResetService(a.repos.Users, a.repos.ResetTokens, newMailer(cfg.SMTP, logger),
		cfg.App.FrontendBaseURL, authOpts...)
	a.users = auth.NewUserAdmin(a.repos.Users, authOpts...)

	if cfg.Reset.CleanupSchedule != "" {
		a.sweeper, err = auth.NewSweeper(a.repos.ResetTokens, cfg.Reset.CleanupSchedule, authOpts...)
		if err != nil {
			return err
		}
	}

	metricsPath := ""
	if a.metrics != nil {
		metricsPath = cfg.Metrics.Path
	}
	a.server, err = api.NewServer(api.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
		MetricsPath:  metricsPath,
		MediaPrefix:  prefix,
	}, api.Dependencies{
		Market:     mkt,
		Login:      login,
		Reset:      reset,
		Users:      a.users,
		Tokens:     tokens,
		Repos:      a.repos,
		Media:      store,
		Metrics:    a.metrics,
		Version:    version,
		MediaFiles: files,
	}, logger.Named("http"))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return nil
}

// primaryProvider returns a nil interface when the provider is disabled.
func primaryProvider(p config.ProviderConfig) market.FXProvider {
	if !p.Active() {
		return nil
	}
	return awesomeapi.New(collector.Config{BaseURL: p.BaseURL, APIKey: p.APIKey, Timeout: p.Timeout})
}

func secondaryProvider(p config.ProviderConfig) market.SecondaryProvider {
	if !p.Active() {
		return nil
	}
	return brapi.New(collector.Config{BaseURL: p.BaseURL, APIKey: p.APIKey, Timeout: p.Timeout})
}

func marketMetrics(reg *metrics.Registry) market.Metrics {
	if reg == nil {
		return nil
	}
	return reg
}

// openStorage connects to PostgreSQL when a DSN is set and falls back to
// the in-memory store otherwise.
func openStorage(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger, migrate bool) (storage.Repositories, error) {
	if cfg.DSN == "" {
		logger.Warn("database.dsn not set, using in-memory storage")
		repos := memory.New().Repositories()
		repos.Ping = nil
		return repos, nil
	}

	pgCfg := postgres.DefaultConfig(cfg.DSN)
	if cfg.MaxConns > 0 {
		pgCfg.MaxConns = cfg.MaxConns
	}
	db, err := postgres.Connect(ctx, pgCfg, logger.Named("postgres"))
	if err != nil {
		return storage.Repositories{}, err
	}
	if migrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return storage.Repositories{}, fmt.Errorf("migrating schema: %w", err)
		}
	}
	return db.Repositories(), nil
}

// openMedia returns the store, the handler serving local files (nil for
// S3) and the path prefix the handler is mounted at.
func openMedia(cfg config.MediaConfig) (media.Store, http.Handler, string, error) {
	switch cfg.Type {
	case "s3":
		store, err := media.NewS3(media.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
			PublicURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, nil, "", fmt.Errorf("creating s3 media store: %w", err)
		}
		return store, nil, "", nil
	default:
		store, err := media.NewLocalFS(cfg.Path, cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, "", fmt.Errorf("creating local media store: %w", err)
		}
		return store, store.Handler(), mediaPrefix(cfg.PublicBaseURL), nil
	}
}

// mediaPrefix extracts the path of the public media URL, which may be
// absolute ("https://api.example.com/media") or a bare path.
func mediaPrefix(publicURL string) string {
	u, err := url.Parse(publicURL)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(u.Path, "/")
}

func newMailer(cfg config.SMTPConfig, logger *zap.Logger) auth.Mailer {
	if cfg.Host == "" {
		return email.NewLog(logger.Named("email"))
	}
	return email.New(email.Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		Username:      cfg.Username,
		Password:      cfg.Password,
		From:          cfg.From,
		FromName:      cfg.FromName,
		ImplicitTLS:   cfg.ImplicitTLS,
		AllowInsecure: cfg.AllowInsecure,
	}, logger.Named("email"))
}

// Server returns the HTTP server.
func (a *App) Server() *api.Server {
	return a.server
}

// Users returns the account administration service.
func (a *App) Users() *auth.UserAdmin {
	return a.users
}

// Run serves HTTP and runs the token sweeper until ctx is cancelled or the
// listener fails.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	if a.sweeper != nil {
		a.sweeper.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
		cancel()
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	if a.sweeper != nil {
		a.sweeper.Stop(shutdownCtx)
	}
	if serveErr != nil {
		return serveErr
	}
	return a.server.Shutdown(shutdownCtx)
}

// Stop asks a running Run to return.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Close releases the storage backend.
func (a *App) Close() {
	if a.repos.Close != nil {
		a.repos.Close()
	}
}
