// Package api holds the JSON handlers mounted under /api.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/remessasegura/backend/internal/api/response"
	"github.com/remessasegura/backend/internal/core"
	"github.com/remessasegura/backend/internal/metrics"
	"go.uber.org/zap"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// fail writes err and logs it. Server-side failures are logged with their
// cause at error level; client errors only at debug.
func fail(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := response.Error(w, err)
	fields := []zap.Field{
		zap.String("request_id", metrics.RequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
		return
	}
	logger.Debug("request rejected", fields...)
}

// decodeJSON reads one JSON object into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Validation("request body is required")
		}
		return core.Validation("malformed JSON body")
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, core.Validation("%s must be a UUID", name)
	}
	return id, nil
}

// queryInt parses an optional integer parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.Validation("%s must be an integer", name)
	}
	return n, nil
}

// splitList splits a comma separated parameter, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
