package api

import (
	"context"
	"net/http"
	"time"

	"github.com/remessasegura/backend/internal/api/response"
	"github.com/remessasegura/backend/internal/core"
	"go.uber.org/zap"
)

// HealthHandler reports process and storage health.
type HealthHandler struct {
	ping    func(ctx context.Context) error
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a health handler. ping checks the storage
// backend.
func NewHealthHandler(ping func(ctx context.Context) error, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{ping: ping, version: version, logger: orNop(logger)}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Database handles GET /api/health/db
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.ping == nil {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok", "storage": "memory"})
		return
	}
	if err := h.ping(ctx); err != nil {
		fail(w, r, h.logger, core.WrapError(core.ErrStorageFailed, err))
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
