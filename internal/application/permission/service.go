package permission

import (
	"github.com/rs/zerolog"

	"github.com/tradepost/tradepost/internal/domain/principal"
)

// Service answers "is action X authorized for principal P".
type Service struct {
	whitelist map[int64]struct{}
	logger    zerolog.Logger
}

// NewService creates a permission engine. The whitelist is the
// environment-level allow-list of admin identities; principals outside it
// are denied every permission regardless of stored role.
func NewService(whitelist []int64, logger zerolog.Logger) *Service {
	set := make(map[int64]struct{}, len(whitelist))
	for _, id := range whitelist {
		set[id] = struct{}{}
	}
	return &Service{
		whitelist: set,
		logger:    logger.With().Str("service", "permission").Logger(),
	}
}

// Authorize runs all three checks: whitelist membership, active non-none
// role, and membership of the permission in the role's declared set.
// Every failure path denies; unknown permissions fail closed.
func (s *Service) Authorize(p *principal.Principal, perm principal.Permission) bool {
	if p == nil {
		return false
	}
	if _, ok := s.whitelist[p.ID]; !ok {
		return false
	}
	if p.Role == principal.RoleNone || !p.Active {
		return false
	}
	if !principal.RoleHas(p.Role, perm) {
		s.logger.Warn().
			Int64("principal_id", p.ID).
			Str("role", string(p.Role)).
			Str("permission", string(perm)).
			Msg("permission denied")
		return false
	}
	return true
}

// IsAdmin reports whether the principal may enter admin conversations at
// all: whitelisted, active, role above none.
func (s *Service) IsAdmin(p *principal.Principal) bool {
	if p == nil {
		return false
	}
	if _, ok := s.whitelist[p.ID]; !ok {
		return false
	}
	return p.Role != principal.RoleNone && p.Active
}
