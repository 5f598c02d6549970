package moderation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	auditapp "github.com/tradepost/tradepost/internal/application/audit"
	"github.com/tradepost/tradepost/internal/application/permission"
	"github.com/tradepost/tradepost/internal/domain/audit"
	"github.com/tradepost/tradepost/internal/domain/listing"
	domain "github.com/tradepost/tradepost/internal/domain/moderation"
	"github.com/tradepost/tradepost/internal/domain/principal"
)

// ErrForbidden is returned when the actor lacks the permission an
// action requires. The target is never touched in that case.
var ErrForbidden = errors.New("forbidden")

// Service is the moderation dispatcher. Every admin mutation flows
// through it in a fixed order: permission check, mutation, audit write.
// A denied check stops before the mutation. An audit failure after a
// committed mutation is escalated in the log but does not undo the
// mutation or report failure to the actor.
type Service struct {
	perms      *permission.Service
	recorder   *auditapp.Service
	principals principal.Repository
	listings   listing.Repository
	warnings   domain.WarningRepository
	filters    domain.FilterRuleRepository
	logger     zerolog.Logger

	// recordDenied also writes audit entries for denied attempts,
	// tagged with a ".denied" action suffix.
	recordDenied bool
}

// NewService creates a moderation dispatcher.
func NewService(
	perms *permission.Service,
	recorder *auditapp.Service,
	principals principal.Repository,
	listings listing.Repository,
	warnings domain.WarningRepository,
	filters domain.FilterRuleRepository,
	recordDenied bool,
	logger zerolog.Logger,
) *Service {
	return &Service{
		perms:        perms,
		recorder:     recorder,
		principals:   principals,
		listings:     listings,
		warnings:     warnings,
		filters:      filters,
		recordDenied: recordDenied,
		logger:       logger.With().Str("service", "moderation").Logger(),
	}
}

type mutateFunc func(ctx context.Context) (map[string]any, error)

// dispatch runs the three-step sequence for one moderation action.
func (s *Service) dispatch(
	ctx context.Context,
	actor *principal.Principal,
	perm principal.Permission,
	action string,
	targetType audit.TargetType,
	targetID string,
	mutate mutateFunc,
) error {
	if !s.perms.Authorize(actor, perm) {
		if s.recordDenied && actor != nil {
			rec := audit.Record{
				ActorID:    actor.ID,
				Action:     action + audit.DeniedSuffix,
				TargetType: targetType,
				TargetID:   targetID,
			}
			if err := s.recorder.Record(ctx, rec); err != nil {
				s.logger.Warn().Err(err).Str("action", action).Msg("failed to record denied attempt")
			}
		}
		return ErrForbidden
	}

	detail, err := mutate(ctx)
	if err != nil {
		return err
	}

	rec := audit.Record{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
	}
	if actor != nil {
		rec.ActorID = actor.ID
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		// The mutation is already committed. The actor must not be told
		// it failed, so the gap is escalated here instead.
		s.logger.Error().Err(err).
			Str("action", action).
			Str("target_id", targetID).
			Msg("audit write failed after committed mutation")
	}
	return nil
}

// BlockUser deactivates a user account.
func (s *Service) BlockUser(ctx context.Context, actor *principal.Principal, userID int64, reason string) error {
	return s.dispatch(ctx, actor, principal.PermBlockUsers, audit.ActionBlockUser,
		audit.TargetUser, strconv.FormatInt(userID, 10),
		func(ctx context.Context) (map[string]any, error) {
			if err := s.principals.SetActive(ctx, userID, false, reason); err != nil {
				return nil, fmt.Errorf("failed to block user: %w", err)
			}
			return map[string]any{"reason": reason}, nil
		})
}

// UnblockUser reactivates a user account.
func (s *Service) UnblockUser(ctx context.Context, actor *principal.Principal, userID int64) error {
	return s.dispatch(ctx, actor, principal.PermBlockUsers, audit.ActionUnblockUser,
		audit.TargetUser, strconv.FormatInt(userID, 10),
		func(ctx context.Context) (map[string]any, error) {
			if err := s.principals.SetActive(ctx, userID, true, ""); err != nil {
				return nil, fmt.Errorf("failed to unblock user: %w", err)
			}
			return nil, nil
		})
}

// WarnUser issues a formal warning against a user.
func (s *Service) WarnUser(ctx context.Context, actor *principal.Principal, userID int64, reason string, severity domain.Severity, expiresAt *time.Time) error {
	if err := domain.ValidateSeverity(severity); err != nil {
		return err
	}
	return s.dispatch(ctx, actor, principal.PermWarnUsers, audit.ActionWarnUser,
		audit.TargetUser, strconv.FormatInt(userID, 10),
		func(ctx context.Context) (map[string]any, error) {
			w := &domain.Warning{
				UserID:    userID,
				Reason:    reason,
				Severity:  severity,
				Active:    true,
				CreatedAt: time.Now().UTC(),
				ExpiresAt: expiresAt,
			}
			if actor != nil {
				w.AdminID = actor.ID
			}
			if err := s.warnings.Create(ctx, w); err != nil {
				return nil, fmt.Errorf("failed to create warning: %w", err)
			}
			if err := s.principals.IncrementWarnings(ctx, userID); err != nil {
				return nil, fmt.Errorf("failed to increment warning count: %w", err)
			}
			return map[string]any{"reason": reason, "severity": string(severity)}, nil
		})
}

// FlagListing marks a listing for review.
func (s *Service) FlagListing(ctx context.Context, actor *principal.Principal, listingID int64, reason string) error {
	return s.dispatch(ctx, actor, principal.PermManageListings, audit.ActionFlagListing,
		audit.TargetListing, strconv.FormatInt(listingID, 10),
		func(ctx context.Context) (map[string]any, error) {
			if err := s.listings.SetFlag(ctx, listingID, true, reason); err != nil {
				return nil, fmt.Errorf("failed to flag listing: %w", err)
			}
			return map[string]any{"reason": reason}, nil
		})
}

// UnflagListing clears a listing's review flag.
func (s *Service) UnflagListing(ctx context.Context, actor *principal.Principal, listingID int64) error {
	return s.dispatch(ctx, actor, principal.PermManageListings, audit.ActionUnflagListing,
		audit.TargetListing, strconv.FormatInt(listingID, 10),
		func(ctx context.Context) (map[string]any, error) {
			if err := s.listings.SetFlag(ctx, listingID, false, ""); err != nil {
				return nil, fmt.Errorf("failed to unflag listing: %w", err)
			}
			return nil, nil
		})
}

// DeleteListing removes a listing from circulation. The row is kept and
// its status set to deleted so the audit trail stays resolvable.
func (s *Service) DeleteListing(ctx context.Context, actor *principal.Principal, listingID int64, reason string) error {
	return s.dispatch(ctx, actor, principal.PermDeleteAnyListing, audit.ActionDeleteListing,
		audit.TargetListing, strconv.FormatInt(listingID, 10),
		func(ctx context.Context) (map[string]any, error) {
			if err := s.listings.SetStatus(ctx, listingID, listing.StatusDeleted); err != nil {
				return nil, fmt.Errorf("failed to delete listing: %w", err)
			}
			return map[string]any{"reason": reason}, nil
		})
}

// UpsertFilter installs or replaces a content filter rule. The
// expression must compile and evaluate to a boolean before it is stored.
func (s *Service) UpsertFilter(ctx context.Context, actor *principal.Principal, name, expression string) error {
	return s.dispatch(ctx, actor, principal.PermManageListings, audit.ActionUpsertFilter,
		audit.TargetFilter, name,
		func(ctx context.Context) (map[string]any, error) {
			now := time.Now().UTC()
			rule := &domain.FilterRule{
				Name:       name,
				Expression: expression,
				Active:     true,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if actor != nil {
				rule.CreatedBy = actor.ID
			}
			if err := rule.Compile(); err != nil {
				return nil, err
			}
			if err := s.filters.Upsert(ctx, rule); err != nil {
				return nil, fmt.Errorf("failed to save filter rule: %w", err)
			}
			return map[string]any{"expression": expression}, nil
		})
}

// ListWarnings returns a user's warnings, newest first.
func (s *Service) ListWarnings(ctx context.Context, userID int64, activeOnly bool) ([]*domain.Warning, error) {
	return s.warnings.ListByUser(ctx, userID, activeOnly)
}

// ExpireWarnings deactivates warnings past their expiry.
func (s *Service) ExpireWarnings(ctx context.Context) (int, error) {
	return s.warnings.DeactivateExpired(ctx)
}

const sweepPageSize = 100

// ApplyFilters sweeps active listings against the active filter rules
// and flags the ones that match. Flags applied by the sweep are audited
// with a zero actor and the matching rule's name in the detail.
func (s *Service) ApplyFilters(ctx context.Context) (int, error) {
	rules, err := s.filters.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load filter rules: %w", err)
	}
	if len(rules) == 0 {
		return 0, nil
	}

	flagged := 0
	active := listing.StatusActive
	notFlagged := false
	filter := listing.Filter{Status: &active, Flagged: &notFlagged}

	for offset := 0; ; offset += sweepPageSize {
		page, err := s.listings.Search(ctx, filter, sweepPageSize, offset)
		if err != nil {
			return flagged, fmt.Errorf("failed to load listings for sweep: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, l := range page {
			rule := matchRule(rules, l)
			if rule == nil {
				continue
			}
			reason := fmt.Sprintf("matched filter %q", rule.Name)
			if err := s.listings.SetFlag(ctx, l.ID, true, reason); err != nil {
				s.logger.Warn().Err(err).Int64("listing_id", l.ID).Msg("sweep failed to flag listing")
				continue
			}
			flagged++
			rec := audit.Record{
				Action:     audit.ActionFlagListing,
				TargetType: audit.TargetListing,
				TargetID:   strconv.FormatInt(l.ID, 10),
				Detail:     map[string]any{"filter": rule.Name, "automated": true},
			}
			if err := s.recorder.Record(ctx, rec); err != nil {
				s.logger.Error().Err(err).Int64("listing_id", l.ID).Msg("audit write failed after sweep flag")
			}
		}
		if len(page) < sweepPageSize {
			break
		}
	}

	if flagged > 0 {
		s.logger.Info().Int("flagged", flagged).Msg("filter sweep flagged listings")
	}
	return flagged, nil
}

func matchRule(rules []*domain.FilterRule, l *listing.Listing) *domain.FilterRule {
	for _, r := range rules {
		ok, err := r.Matches(l)
		if err != nil {
			continue
		}
		if ok {
			return r
		}
	}
	return nil
}
