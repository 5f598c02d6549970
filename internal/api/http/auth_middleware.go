package httpapi

import (
	"net/http"
	"strings"

	"github.com/tradepost/tradepost/internal/domain/principal"
)

// requireAuth validates the session token (Authorization header or
// cookie) and stores the authenticated principal in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r, s.sessionCookieName)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token")
			return
		}
		p, _, err := s.authSvc.Authenticate(r.Context(), token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			return
		}
		ctx := withAuthUser(r.Context(), &AuthUser{
			PrincipalID: p.ID,
			Username:    p.Username,
			Role:        p.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePermission gates a route on the permission engine. The full
// principal row is reloaded so whitelist and active checks run against
// current state, not the state at login time.
func (s *Server) requirePermission(perm principal.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := authUserFromContext(r.Context())
			if u == nil {
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
				return
			}
			p, err := s.principalSvc.Get(r.Context(), u.PrincipalID)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
				return
			}
			if !s.perms.Authorize(p, perm) {
				respondError(w, http.StatusForbidden, "FORBIDDEN", "permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimPrefix(h, "Bearer ")
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
