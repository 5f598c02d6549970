package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	appAudit "github.com/tradepost/tradepost/internal/application/audit"
	appAuth "github.com/tradepost/tradepost/internal/application/auth"
	appConversation "github.com/tradepost/tradepost/internal/application/conversation"
	appListing "github.com/tradepost/tradepost/internal/application/listing"
	appModeration "github.com/tradepost/tradepost/internal/application/moderation"
	appPermission "github.com/tradepost/tradepost/internal/application/permission"
	appPrincipal "github.com/tradepost/tradepost/internal/application/principal"
	"github.com/tradepost/tradepost/internal/domain/principal"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	controller          *appConversation.Controller
	authSvc             *appAuth.Service
	auditSvc            *appAudit.Service
	moderationSvc       *appModeration.Service
	principalSvc        *appPrincipal.Service
	listingSvc          *appListing.Service
	perms               *appPermission.Service
	sessionCookieName   string
	sessionCookieSecure bool
}

func NewServer(
	controller *appConversation.Controller,
	authSvc *appAuth.Service,
	auditSvc *appAudit.Service,
	moderationSvc *appModeration.Service,
	principalSvc *appPrincipal.Service,
	listingSvc *appListing.Service,
	perms *appPermission.Service,
	sessionCookieName string,
	sessionCookieSecure bool,
) *Server {
	return &Server{
		controller:          controller,
		authSvc:             authSvc,
		auditSvc:            auditSvc,
		moderationSvc:       moderationSvc,
		principalSvc:        principalSvc,
		listingSvc:          listingSvc,
		perms:               perms,
		sessionCookieName:   sessionCookieName,
		sessionCookieSecure: sessionCookieSecure,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		// Chat gateway ingress. The transport adapter in front of this
		// endpoint is trusted to report the sender's identity.
		r.Post("/gateway/events", s.gatewayEvent)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.login)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/authorize", s.authorizeProbe)

			r.With(s.requirePermission(principal.PermViewAuditLog)).Get("/audit", s.queryAudit)
			r.With(s.requirePermission(principal.PermViewAuditLog)).Get("/audit/{entryId}", s.getAuditEntry)
			r.With(s.requirePermission(principal.PermViewAuditLog)).Get("/targets/{targetType}/{targetId}/history", s.targetHistory)

			r.With(s.requirePermission(principal.PermManageUsers)).Get("/principals", s.listPrincipals)
			r.With(s.requirePermission(principal.PermManageUsers)).Get("/principals/{principalId}", s.getPrincipal)
			r.With(s.requirePermission(principal.PermWarnUsers)).Get("/principals/{principalId}/warnings", s.listWarnings)

			r.With(s.requirePermission(principal.PermManageListings)).Get("/listings", s.listFlaggedListings)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseInt64Param(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
