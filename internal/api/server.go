// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	handler "github.com/remessasegura/backend/internal/api/handler/api"
	"github.com/remessasegura/backend/internal/api/middleware"
	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/metrics"
	"github.com/remessasegura/backend/internal/storage"
	"github.com/remessasegura/backend/internal/storage/media"
	"go.uber.org/zap"
)

// Server represents the HTTP server of the portal backend.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string

	// MetricsPath empty disables the Prometheus endpoint.
	MetricsPath string
	// MediaPrefix is where MediaFiles is mounted, e.g. "/media".
	MediaPrefix string
}

// Dependencies holds the services the routes call.
type Dependencies struct {
	Market  handler.MarketService
	Login   handler.LoginService
	Reset   handler.PasswordResetService
	Users   handler.UserCreator
	Tokens  middleware.TokenParser
	Repos   storage.Repositories
	Media   media.Store
	Metrics *metrics.Registry
	Version string

	// MediaFiles serves stored media when the store is local.
	MediaFiles http.Handler
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Market == nil || deps.Login == nil || deps.Reset == nil || deps.Users == nil || deps.Tokens == nil {
		return nil, fmt.Errorf("market, login, reset, users and tokens are required")
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	var h http.Handler = middleware.CORS(cfg.CORSOrigins)(mux)
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)
	h = middleware.Recovery(logger)(h)

	readTimeout, writeTimeout := cfg.ReadTimeout, cfg.WriteTimeout
	if readTimeout == 0 {
		readTimeout = 15 * time.Second
	}
	if writeTimeout == 0 {
		writeTimeout = 45 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           h,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	editors := middleware.BearerAuth(deps.Tokens, core.RoleAdmin, core.RoleSupervisor)
	admins := middleware.BearerAuth(deps.Tokens, core.RoleAdmin)

	m := handler.NewMarketHandler(deps.Market, s.logger)
	s.mux.HandleFunc("GET /api/market/currency/quotes", m.CurrencyQuotes)
	s.mux.HandleFunc("GET /api/market/currency/history/{pair}", m.CurrencyHistory)
	s.mux.HandleFunc("GET /api/market/currency/convert", m.Convert)
	s.mux.HandleFunc("GET /api/market/quote", m.StockQuotes)
	s.mux.HandleFunc("GET /api/market/list", m.StockList)
	s.mux.HandleFunc("GET /api/market/history/{ticker}", m.TickerHistory)

	a := handler.NewAuthHandler(deps.Login, deps.Reset, deps.Users, s.logger)
	s.mux.HandleFunc("POST /api/auth/login", a.Login)
	s.mux.HandleFunc("POST /api/auth/forgot-password", a.ForgotPassword)
	s.mux.HandleFunc("POST /api/auth/reset-password", a.ResetPassword)
	s.mux.Handle("POST /api/usuarios", admins(http.HandlerFunc(a.CreateUser)))

	if deps.Repos.News != nil {
		n := handler.NewNewsHandler(deps.Repos.News, deps.Media, s.logger)
		s.mux.HandleFunc("GET /api/noticias", n.Published)
		s.mux.HandleFunc("GET /api/noticias/slug/{slug}", n.BySlug)
		s.mux.HandleFunc("GET /api/noticias/categoria/{categoria}", n.ByCategory)
		s.mux.HandleFunc("GET /api/noticias/destaques", n.Highlights)
		s.mux.HandleFunc("GET /api/noticias/mais-lidas", n.MostRead)
		s.mux.HandleFunc("POST /api/noticias/{id}/visualizar", n.View)
		s.mux.Handle("GET /api/noticias/admin/all", editors(http.HandlerFunc(n.All)))
		s.mux.Handle("POST /api/noticias", editors(http.HandlerFunc(n.Create)))
		s.mux.Handle("PUT /api/noticias/{id}", editors(http.HandlerFunc(n.Update)))
		s.mux.Handle("DELETE /api/noticias/{id}", editors(http.HandlerFunc(n.Delete)))
		s.mux.Handle("POST /api/noticias/{id}/capa", editors(http.HandlerFunc(n.UploadCover)))
	}

	if deps.Repos.Banks != nil && deps.Repos.Occurrences != nil {
		c := handler.NewCatalogHandler(deps.Repos.Banks, deps.Repos.Occurrences, s.logger)
		s.mux.HandleFunc("GET /api/bancos", c.Banks)
		s.mux.HandleFunc("GET /api/bancos/{bancoId}", c.Bank)
		s.mux.HandleFunc("GET /api/bancos/{bancoId}/ocorrencias/{ocorrencia}/motivos", c.Reasons)
		s.mux.HandleFunc("GET /api/bancos/{bancoId}/ocorrencias/{ocorrencia}/motivos/{motivo}", c.Reason)
		s.mux.Handle("POST /api/bancos/ocorrencias/motivos", editors(http.HandlerFunc(c.CreateReason)))
		s.mux.Handle("PUT /api/bancos/{bancoId}/ocorrencias/{ocorrencia}/motivos/{motivo}", editors(http.HandlerFunc(c.UpdateReason)))
	}

	hh := handler.NewHealthHandler(deps.Repos.Ping, deps.Version, s.logger)
	s.mux.HandleFunc("GET /api/health", hh.Health)
	s.mux.HandleFunc("GET /api/health/db", hh.Database)

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	if deps.MediaFiles != nil && cfg.MediaPrefix != "" {
		prefix := "/" + strings.Trim(cfg.MediaPrefix, "/")
		s.mux.Handle("GET "+prefix+"/", http.StripPrefix(prefix, deps.MediaFiles))
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
