package principal

import "context"

// Filter controls principal listing.
type Filter struct {
	Role     *Role
	Active   *bool
	Verified *bool
}

// Repository defines persistence for principals.
type Repository interface {
	Create(ctx context.Context, p *Principal) error
	Update(ctx context.Context, p *Principal) error
	GetByID(ctx context.Context, id int64) (*Principal, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Principal, error)
	SetActive(ctx context.Context, id int64, active bool, reason string) error
	SetRole(ctx context.Context, id int64, role Role) error
	IncrementWarnings(ctx context.Context, id int64) error
	Count(ctx context.Context, filter Filter) (int, error)
}
