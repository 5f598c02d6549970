package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	domain "github.com/tradepost/tradepost/internal/domain/listing"
)

// Limits tunes deployment-configurable listing constraints. Zero values
// fall back to the domain defaults.
type Limits struct {
	MaxPhotos int
	MinPrice  float64
	MaxPrice  float64
}

// Service handles listing lifecycle.
type Service struct {
	repo   domain.Repository
	limits Limits
	logger zerolog.Logger
}

// NewService creates a listing service.
func NewService(repo domain.Repository, limits Limits, logger zerolog.Logger) *Service {
	if limits.MaxPhotos <= 0 {
		limits.MaxPhotos = domain.MaxPhotos
	}
	if limits.MinPrice <= 0 {
		limits.MinPrice = domain.MinPrice
	}
	if limits.MaxPrice <= 0 {
		limits.MaxPrice = domain.MaxPrice
	}
	return &Service{
		repo:   repo,
		limits: limits,
		logger: logger.With().Str("service", "listing").Logger(),
	}
}

// CreateInput defines listing creation input. Fields are assumed to have
// passed flow-level validation; they are re-checked here so the service
// is safe to call from other entry points.
type CreateInput struct {
	SellerID    int64
	Title       string
	Description string
	Price       float64
	Category    string
	Location    string
	Photos      []string
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Listing, error) {
	if err := domain.ValidateTitle(input.Title); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}
	if input.Price < s.limits.MinPrice || input.Price > s.limits.MaxPrice {
		return nil, fmt.Errorf("price must be between %.2f and %.2f", s.limits.MinPrice, s.limits.MaxPrice)
	}
	if !domain.IsCategory(input.Category) {
		return nil, fmt.Errorf("unknown category: %s", input.Category)
	}
	if len(input.Photos) > s.limits.MaxPhotos {
		input.Photos = input.Photos[:s.limits.MaxPhotos]
	}

	now := time.Now().UTC()
	l := &domain.Listing{
		SellerID:    input.SellerID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Currency:    "USD",
		Category:    input.Category,
		Location:    input.Location,
		Status:      domain.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	for i, ref := range input.Photos {
		photo := &domain.Photo{
			ListingID: l.ID,
			FileRef:   ref,
			Primary:   i == 0,
			CreatedAt: now,
		}
		if err := s.repo.AddPhoto(ctx, photo); err != nil {
			return nil, fmt.Errorf("failed to attach photo: %w", err)
		}
		l.Photos = append(l.Photos, *photo)
	}

	s.logger.Info().
		Int64("listing_id", l.ID).
		Int64("seller_id", l.SellerID).
		Str("category", l.Category).
		Msg("listing created")
	return l, nil
}

// Field names an editable listing attribute.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldPrice       Field = "price"
	FieldCategory    Field = "category"
	FieldLocation    Field = "location"
	FieldStatus      Field = "status"
)

// ErrNotOwner is returned when a principal edits a listing it does not own.
var ErrNotOwner = fmt.Errorf("listing does not belong to principal")

// UpdateField commits one field of a listing owned by the caller.
func (s *Service) UpdateField(ctx context.Context, sellerID, listingID int64, field Field, value string) (*domain.Listing, error) {
	l, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	if l == nil {
		return nil, fmt.Errorf("listing not found: %d", listingID)
	}
	if l.SellerID != sellerID {
		return nil, ErrNotOwner
	}

	switch field {
	case FieldTitle:
		if err := domain.ValidateTitle(value); err != nil {
			return nil, err
		}
		l.Title = value
	case FieldDescription:
		if err := domain.ValidateDescription(value); err != nil {
			return nil, err
		}
		l.Description = value
	case FieldPrice:
		price, err := domain.ParsePriceBounded(value, s.limits.MinPrice, s.limits.MaxPrice)
		if err != nil {
			return nil, err
		}
		l.Price = price
	case FieldCategory:
		if !domain.IsCategory(value) {
			return nil, fmt.Errorf("unknown category: %s", value)
		}
		l.Category = value
	case FieldLocation:
		l.Location = value
	case FieldStatus:
		status := domain.Status(value)
		if err := domain.ValidateStatus(status); err != nil {
			return nil, err
		}
		l.Status = status
	default:
		return nil, fmt.Errorf("unknown listing field: %s", field)
	}

	l.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}
	return l, nil
}

// AttachPhoto adds a photo to a listing owned by the caller. The first
// photo on a listing becomes its primary.
func (s *Service) AttachPhoto(ctx context.Context, sellerID, listingID int64, fileRef string) (*domain.Listing, error) {
	l, err := s.repo.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	if l == nil {
		return nil, fmt.Errorf("listing not found: %d", listingID)
	}
	if l.SellerID != sellerID {
		return nil, ErrNotOwner
	}
	if len(l.Photos) >= s.limits.MaxPhotos {
		return nil, fmt.Errorf("listing already has %d photos", s.limits.MaxPhotos)
	}

	photo := &domain.Photo{
		ListingID: l.ID,
		FileRef:   fileRef,
		Primary:   len(l.Photos) == 0,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AddPhoto(ctx, photo); err != nil {
		return nil, fmt.Errorf("failed to attach photo: %w", err)
	}
	l.Photos = append(l.Photos, *photo)
	return l, nil
}

// SearchResult is one page of listings plus the total match count.
type SearchResult struct {
	Listings []*domain.Listing
	Total    int
}

// Search runs a filtered query and returns one page of active listings.
func (s *Service) Search(ctx context.Context, filter domain.Filter, limit, offset int) (*SearchResult, error) {
	if filter.Status == nil {
		active := domain.StatusActive
		filter.Status = &active
	}
	listings, err := s.repo.Search(ctx, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}
	return &SearchResult{Listings: listings, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Listing, error) {
	return s.repo.GetByID(ctx, id)
}

// View records one view and returns the listing.
func (s *Service) View(ctx context.Context, id int64) (*domain.Listing, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil || l == nil {
		return l, err
	}
	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.logger.Warn().Err(err).Int64("listing_id", id).Msg("failed to record view")
	}
	return l, nil
}
