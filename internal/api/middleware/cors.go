package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders = "Authorization, Content-Type"
)

// OriginMatcher decides whether a browser origin may call the API.
type OriginMatcher struct {
	origins  map[string]bool
	hosts    map[string]bool
	suffixes []string
}

// NewOriginMatcher accepts full origins ("https://app.example.com"), bare
// hosts ("localhost", any scheme and port) and host wildcards
// ("*.example.com").
func NewOriginMatcher(allowed []string) *OriginMatcher {
	m := &OriginMatcher{origins: make(map[string]bool), hosts: make(map[string]bool)}
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimSpace(o))
		switch {
		case o == "":
		case strings.HasPrefix(o, "*."):
			m.suffixes = append(m.suffixes, o[1:])
		case strings.Contains(o, "://"):
			m.origins[strings.TrimRight(o, "/")] = true
		default:
			m.hosts[o] = true
		}
	}
	return m
}

// Allowed reports whether origin matches.
func (m *OriginMatcher) Allowed(origin string) bool {
	origin = strings.ToLower(origin)
	if m.origins[origin] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := u.Hostname()
	if m.hosts[host] {
		return true
	}
	for _, s := range m.suffixes {
		if strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}

// CORS returns middleware that answers preflight requests and sets the
// allow headers for matching origins. Credentials are allowed, so the
// origin is echoed instead of "*".
func CORS(origins []string) func(http.Handler) http.Handler {
	m := NewOriginMatcher(origins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				w.Header().Add("Vary", "Origin")
			}
			allowed := origin != "" && m.Allowed(origin)
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", allowMethods)
				if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
					h.Set("Access-Control-Allow-Headers", req)
				} else {
					h.Set("Access-Control-Allow-Headers", allowHeaders)
				}
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
