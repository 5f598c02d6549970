package listing

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domain "github.com/tradepost/tradepost/internal/domain/listing"
	listingmocks "github.com/tradepost/tradepost/internal/domain/listing/mocks"
)

func newSvc(t *testing.T, limits Limits) (*Service, *listingmocks.MockRepository) {
	ctrl := gomock.NewController(t)
	repo := listingmocks.NewMockRepository(ctrl)
	return NewService(repo, limits, zerolog.Nop()), repo
}

func TestCreateClampsPhotosToConfiguredLimit(t *testing.T) {
	svc, repo := newSvc(t, Limits{MaxPhotos: 2})
	ctx := context.Background()

	repo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, l *domain.Listing) error {
			l.ID = 1
			return nil
		})
	repo.EXPECT().AddPhoto(ctx, gomock.Any()).Return(nil).Times(2)

	l, err := svc.Create(ctx, CreateInput{
		SellerID: 7,
		Title:    "Old mountain bike",
		Price:    100,
		Category: "sports",
		Photos:   []string{"p1", "p2", "p3"},
	})
	require.NoError(t, err)
	assert.Len(t, l.Photos, 2)
}

func TestCreateRejectsPriceOutsideConfiguredBounds(t *testing.T) {
	svc, _ := newSvc(t, Limits{MinPrice: 5, MaxPrice: 100})

	_, err := svc.Create(context.Background(), CreateInput{
		SellerID: 7,
		Title:    "Old mountain bike",
		Price:    2,
		Category: "sports",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "between 5.00 and 100.00")
}

func TestAttachPhotoStopsAtConfiguredLimit(t *testing.T) {
	svc, repo := newSvc(t, Limits{MaxPhotos: 2})
	ctx := context.Background()

	repo.EXPECT().GetByID(ctx, int64(1)).Return(&domain.Listing{
		ID:       1,
		SellerID: 7,
		Photos:   []domain.Photo{{FileRef: "p1"}, {FileRef: "p2"}},
	}, nil)

	_, err := svc.AttachPhoto(ctx, 7, 1, "p3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has 2 photos")
}

func TestUpdateFieldPriceUsesConfiguredBounds(t *testing.T) {
	svc, repo := newSvc(t, Limits{MinPrice: 5, MaxPrice: 100})
	ctx := context.Background()

	repo.EXPECT().GetByID(ctx, int64(1)).Return(&domain.Listing{
		ID: 1, SellerID: 7, Title: "Old mountain bike", Price: 50, Category: "sports",
	}, nil).Times(2)
	repo.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	_, err := svc.UpdateField(ctx, 7, 1, FieldPrice, "2")
	require.Error(t, err)

	l, err := svc.UpdateField(ctx, 7, 1, FieldPrice, "99")
	require.NoError(t, err)
	assert.InDelta(t, 99.0, l.Price, 0.001)
}
