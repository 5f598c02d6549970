package listing

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import "context"

// Filter controls listing search.
type Filter struct {
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
	SellerID *int64
	Status   *Status
	Flagged  *bool
}

// Repository defines persistence for listings.
type Repository interface {
	Create(ctx context.Context, l *Listing) error
	Update(ctx context.Context, l *Listing) error
	GetByID(ctx context.Context, id int64) (*Listing, error)
	Search(ctx context.Context, filter Filter, limit, offset int) ([]*Listing, error)
	Count(ctx context.Context, filter Filter) (int, error)
	AddPhoto(ctx context.Context, photo *Photo) error
	SetFlag(ctx context.Context, id int64, flagged bool, reason string) error
	SetStatus(ctx context.Context, id int64, status Status) error
	IncrementViews(ctx context.Context, id int64) error
}
