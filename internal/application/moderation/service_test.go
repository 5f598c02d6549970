package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	auditapp "github.com/tradepost/tradepost/internal/application/audit"
	"github.com/tradepost/tradepost/internal/application/permission"
	"github.com/tradepost/tradepost/internal/domain/audit"
	auditmocks "github.com/tradepost/tradepost/internal/domain/audit/mocks"
	"github.com/tradepost/tradepost/internal/domain/listing"
	listingmocks "github.com/tradepost/tradepost/internal/domain/listing/mocks"
	domain "github.com/tradepost/tradepost/internal/domain/moderation"
	"github.com/tradepost/tradepost/internal/domain/principal"
)

// staticFilterRepo serves a single active rule for sweep tests.
type staticFilterRepo struct{ expr string }

func (r *staticFilterRepo) Upsert(_ context.Context, _ *domain.FilterRule) error { return nil }

func (r *staticFilterRepo) ListActive(_ context.Context) ([]*domain.FilterRule, error) {
	return []*domain.FilterRule{{ID: 1, Name: "expensive", Expression: r.expr, Active: true}}, nil
}

func (r *staticFilterRepo) SetActive(_ context.Context, _ int64, _ bool) error { return nil }

type fixture struct {
	svc      *Service
	listings *listingmocks.MockRepository
	audits   *auditmocks.MockRepository
}

func newFixture(t *testing.T, recordDenied bool, whitelist ...int64) *fixture {
	ctrl := gomock.NewController(t)
	listings := listingmocks.NewMockRepository(ctrl)
	audits := auditmocks.NewMockRepository(ctrl)
	recorder := auditapp.NewService(audits, zerolog.Nop(), []byte("test-key"))
	perms := permission.NewService(whitelist, zerolog.Nop())
	svc := NewService(perms, recorder, nil, listings, nil, nil, recordDenied, zerolog.Nop())
	return &fixture{svc: svc, listings: listings, audits: audits}
}

func admin(id int64) *principal.Principal {
	return &principal.Principal{ID: id, Role: principal.RoleAdmin, Active: true}
}

func moderator(id int64) *principal.Principal {
	return &principal.Principal{ID: id, Role: principal.RoleModerator, Active: true}
}

func TestFlagListingMutatesThenAudits(t *testing.T) {
	f := newFixture(t, false, 1)
	ctx := context.Background()

	gomock.InOrder(
		f.listings.EXPECT().SetFlag(ctx, int64(42), true, "spam").Return(nil),
		f.audits.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, e *audit.Entry) error {
				assert.Equal(t, audit.ActionFlagListing, e.Action)
				assert.Equal(t, int64(1), e.ActorID)
				assert.Equal(t, audit.TargetListing, e.TargetType)
				assert.Equal(t, "42", e.TargetID)
				assert.Equal(t, audit.RiskMedium, e.RiskLevel)
				assert.NotEmpty(t, e.Signature)
				return nil
			}),
	)

	err := f.svc.FlagListing(ctx, admin(1), 42, "spam")
	require.NoError(t, err)
}

func TestForbiddenActorNeverTouchesTarget(t *testing.T) {
	// Actor is not whitelisted: no mutation, no audit entry.
	f := newFixture(t, false, 1)

	err := f.svc.FlagListing(context.Background(), admin(99), 42, "spam")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestModeratorCannotDeleteListing(t *testing.T) {
	f := newFixture(t, false, 5)

	err := f.svc.DeleteListing(context.Background(), moderator(5), 42, "fraud")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeniedAttemptAuditedWhenEnabled(t *testing.T) {
	f := newFixture(t, true, 5)
	ctx := context.Background()

	f.audits.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, e *audit.Entry) error {
			assert.Equal(t, audit.ActionDeleteListing+audit.DeniedSuffix, e.Action)
			assert.Equal(t, audit.RiskLow, e.RiskLevel)
			return nil
		})

	err := f.svc.DeleteListing(ctx, moderator(5), 42, "fraud")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMutationErrorSkipsAudit(t *testing.T) {
	f := newFixture(t, false, 1)
	ctx := context.Background()

	f.listings.EXPECT().SetFlag(ctx, int64(42), true, "spam").Return(errors.New("db down"))

	err := f.svc.FlagListing(ctx, admin(1), 42, "spam")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestAuditFailureAfterMutationStillSucceeds(t *testing.T) {
	f := newFixture(t, false, 1)
	ctx := context.Background()

	gomock.InOrder(
		f.listings.EXPECT().SetStatus(ctx, int64(42), listing.StatusDeleted).Return(nil),
		f.audits.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("audit store down")),
	)

	err := f.svc.DeleteListing(ctx, admin(1), 42, "fraud")
	assert.NoError(t, err)
}

func TestUpsertFilterRejectsBadExpression(t *testing.T) {
	f := newFixture(t, false, 1)

	err := f.svc.UpsertFilter(context.Background(), admin(1), "bad", "price >")
	require.Error(t, err)
}

func TestApplyFiltersFlagsMatchesAndAudits(t *testing.T) {
	ctrl := gomock.NewController(t)
	listings := listingmocks.NewMockRepository(ctrl)
	audits := auditmocks.NewMockRepository(ctrl)
	recorder := auditapp.NewService(audits, zerolog.Nop(), nil)
	perms := permission.NewService(nil, zerolog.Nop())
	svc := NewService(perms, recorder, nil, listings, nil, &staticFilterRepo{expr: `price > 1000`}, false, zerolog.Nop())

	ctx := context.Background()
	page := []*listing.Listing{
		{ID: 1, Price: 50, Status: listing.StatusActive},
		{ID: 2, Price: 5000, Status: listing.StatusActive},
	}
	listings.EXPECT().Search(ctx, gomock.Any(), sweepPageSize, 0).Return(page, nil)
	listings.EXPECT().SetFlag(ctx, int64(2), true, gomock.Any()).Return(nil)
	audits.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, e *audit.Entry) error {
			assert.Equal(t, "2", e.TargetID)
			assert.Equal(t, int64(0), e.ActorID)
			return nil
		})

	flagged, err := svc.ApplyFilters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
}
