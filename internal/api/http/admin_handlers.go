package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appAudit "github.com/tradepost/tradepost/internal/application/audit"
	"github.com/tradepost/tradepost/internal/domain/audit"
	"github.com/tradepost/tradepost/internal/domain/listing"
	"github.com/tradepost/tradepost/internal/domain/principal"
)

// Audit handlers
func (s *Server) queryAudit(w http.ResponseWriter, r *http.Request) {
	params := appAudit.QueryParams{
		Limit: 50,
	}
	if v := r.URL.Query().Get("actorId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid actorId")
			return
		}
		params.ActorID = &id
	}
	if v := r.URL.Query().Get("action"); v != "" {
		params.Action = &v
	}
	if v := r.URL.Query().Get("targetType"); v != "" {
		params.TargetType = &v
	}
	if v := r.URL.Query().Get("targetId"); v != "" {
		params.TargetID = &v
	}
	if v := r.URL.Query().Get("riskLevel"); v != "" {
		params.RiskLevel = &v
	}
	if v := r.URL.Query().Get("cursor"); v != "" {
		params.Cursor = &v
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			params.Limit = l
		}
	}
	res, err := s.auditSvc.Query(r.Context(), params)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) getAuditEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "entryId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid entryId")
		return
	}
	entry, err := s.auditSvc.GetByEntryID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if entry == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "audit entry not found")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) targetHistory(w http.ResponseWriter, r *http.Request) {
	targetType := audit.TargetType(chi.URLParam(r, "targetType"))
	switch targetType {
	case audit.TargetUser, audit.TargetListing, audit.TargetMessage, audit.TargetFilter:
	default:
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid targetType")
		return
	}
	targetID := chi.URLParam(r, "targetId")
	entries, err := s.auditSvc.TargetHistory(r.Context(), targetType, targetID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"target_type": targetType,
		"target_id":   targetID,
		"entries":     entries,
	})
}

// authorizeProbe lets a dashboard client ask what the signed-in
// principal may do, so menus can be rendered without guessing.
func (s *Server) authorizeProbe(w http.ResponseWriter, r *http.Request) {
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
	resp := map[string]interface{}{
		"principal_id": u.PrincipalID,
		"role":         u.Role,
		"permissions":  principal.PermissionsFor(u.Role),
	}
	if v := r.URL.Query().Get("permission"); v != "" {
		resp["permission"] = v
		resp["authorized"] = s.perms.Authorize(p, principal.Permission(v))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Principal handlers
func (s *Server) listPrincipals(w http.ResponseWriter, r *http.Request) {
	var filter principal.Filter
	if v := r.URL.Query().Get("role"); v != "" {
		role := principal.Role(v)
		if err := principal.ValidateRole(role); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
			return
		}
		filter.Role = &role
	}
	if v := r.URL.Query().Get("active"); v != "" {
		active := v == "true"
		filter.Active = &active
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	principals, err := s.principalSvc.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	total, err := s.principalSvc.Count(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"principals": principals,
		"total":      total,
	})
}

func (s *Server) getPrincipal(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r, "principalId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid principalId")
		return
	}
	p, err := s.principalSvc.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if p == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "principal not found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) listWarnings(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r, "principalId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid principalId")
		return
	}
	activeOnly := r.URL.Query().Get("all") != "true"
	warnings, err := s.moderationSvc.ListWarnings(r.Context(), id, activeOnly)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  id,
		"warnings": warnings,
	})
}

// Listing handlers
func (s *Server) listFlaggedListings(w http.ResponseWriter, r *http.Request) {
	filter := listing.Filter{}
	flagged := r.URL.Query().Get("flagged") != "false"
	filter.Flagged = &flagged
	if v := r.URL.Query().Get("status"); v != "" {
		st := listing.Status(v)
		filter.Status = &st
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	res, err := s.listingSvc.Search(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}
