// Package api implements HTTP handlers and helpers for the CVRP solver service.
package api

import (
	"net/http"
	"strings"

	"cvrpga/internal/auth"
)

// getPrincipal extracts the caller from a bearer token. With auth disabled the
// X-Role header (default admin) is trusted, for local use.
func (s *Server) getPrincipal(r *http.Request) (auth.Principal, bool) {
	if !s.Auth.Enabled() {
		role := strings.ToLower(r.Header.Get("X-Role"))
		if role == "" {
			role = auth.RoleAdmin
		}
		return auth.Principal{Role: role}, true
	}
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return auth.Principal{}, false
	}
	pr, err := s.Auth.Verify(strings.TrimSpace(authz[len("Bearer "):]))
	if err != nil {
		return auth.Principal{}, false
	}
	return pr, true
}

// authorize writes 401/403 and returns false unless the caller may proceed.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, adminOnly bool) (auth.Principal, bool) {
	pr, ok := s.getPrincipal(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", `Bearer realm="cvrp"`)
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "valid bearer token required", r.URL.Path)
		return pr, false
	}
	if adminOnly && pr.Role != auth.RoleAdmin {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return pr, false
	}
	return pr, true
}
