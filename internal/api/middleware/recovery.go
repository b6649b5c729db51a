// internal/api/middleware/recovery.go
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/remessasegura/backend/internal/api/response"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a generic 500 response and logs the
// panic value with its stack. http.ErrAbortHandler is re-raised so net/http
// can abort the connection as the handler asked.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				logger.Error("panic recovered in HTTP handler",
					zap.String("panic", fmt.Sprint(rec)),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				response.Error(w, errors.New("handler panicked"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
