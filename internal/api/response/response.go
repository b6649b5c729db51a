// internal/api/response/response.go
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/remessasegura/backend/internal/core"
)

// ErrorResponse is the body of every error response. RetryAfter is in
// seconds and only set when the upstream is unavailable.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

const (
	internalCode    = "INTERNAL_ERROR"
	internalMessage = "an internal error occurred"
)

var statusByCode = map[string]int{
	core.ErrValidation.Code:           http.StatusBadRequest,
	core.ErrInvalidCredentials.Code:   http.StatusUnauthorized,
	core.ErrUnauthorized.Code:         http.StatusUnauthorized,
	core.ErrResetTokenInvalid.Code:    http.StatusUnauthorized,
	core.ErrForbidden.Code:            http.StatusForbidden,
	core.ErrNotFound.Code:             http.StatusNotFound,
	core.ErrConflict.Code:             http.StatusConflict,
	core.ErrUpstreamUnavailable.Code:  http.StatusServiceUnavailable,
	core.ErrUpstreamSchema.Code:       http.StatusInternalServerError,
	core.ErrUpstreamUnauthorized.Code: http.StatusBadGateway,
	core.ErrUpstreamFailed.Code:       http.StatusBadGateway,
}

// JSON writes data as the whole response body.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, MessageResponse{Message: msg})
}

// StatusOf maps err to an HTTP status. Errors without a known code are 500.
func StatusOf(err error) int {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		if status, ok := statusByCode[coreErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// Error writes err with the status from StatusOf and returns that status.
// Only the coded message reaches the client; causes stay server-side.
func Error(w http.ResponseWriter, err error) int {
	status := StatusOf(err)
	body := ErrorResponse{Error: internalMessage, Code: internalCode}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		if _, known := statusByCode[coreErr.Code]; known {
			body.Error = coreErr.Message
			body.Code = coreErr.Code
		}
	}

	if status == http.StatusServiceUnavailable {
		retry := core.RetryAfterOf(err)
		if retry < core.MinRetryAfter {
			retry = core.MinRetryAfter
		}
		body.RetryAfter = int(retry.Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	}

	JSON(w, status, body)
	return status
}
