// internal/api/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/remessasegura/backend/internal/api/response"
	"github.com/remessasegura/backend/internal/auth"
	"github.com/remessasegura/backend/internal/core"
)

// TokenParser verifies bearer tokens.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type claimsKey struct{}

// ClaimsFrom returns the claims stored by BearerAuth.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

// BearerAuth returns middleware that requires a valid bearer token holding
// at least one of roles. With no roles any valid token passes.
func BearerAuth(parser TokenParser, roles ...core.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				response.Error(w, core.ErrUnauthorized)
				return
			}

			claims, err := parser.Parse(strings.TrimSpace(token))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				response.Error(w, core.ErrUnauthorized)
				return
			}

			if len(roles) > 0 && !claims.HasRole(roles...) {
				response.Error(w, core.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}
