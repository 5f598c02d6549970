package principal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	domain "github.com/tradepost/tradepost/internal/domain/principal"
)

// Service handles principal management.
type Service struct {
	repo   domain.Repository
	logger zerolog.Logger
}

// NewService creates a principal service.
func NewService(repo domain.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "principal").Logger(),
	}
}

// Identity carries the profile fields delivered with each gateway event.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Ensure returns the principal for the identity, creating it on first
// contact and refreshing profile fields that changed upstream.
func (s *Service) Ensure(ctx context.Context, ident Identity) (*domain.Principal, error) {
	p, err := s.repo.GetByID(ctx, ident.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}
	if p == nil {
		now := time.Now().UTC()
		p = &domain.Principal{
			ID:        ident.ID,
			Username:  ident.Username,
			FirstName: ident.FirstName,
			LastName:  ident.LastName,
			Role:      domain.RoleNone,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to create principal: %w", err)
		}
		s.logger.Info().Int64("principal_id", p.ID).Msg("principal registered")
		return p, nil
	}

	if p.Username != ident.Username || p.FirstName != ident.FirstName || p.LastName != ident.LastName {
		p.Username = ident.Username
		p.FirstName = ident.FirstName
		p.LastName = ident.LastName
		p.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to update principal: %w", err)
		}
	}
	return p, nil
}

// ProfileField names an editable profile attribute.
type ProfileField string

const (
	FieldPhone    ProfileField = "phone"
	FieldLocation ProfileField = "location"
	FieldBio      ProfileField = "bio"
)

// UpdateProfileField validates and commits one profile field.
func (s *Service) UpdateProfileField(ctx context.Context, id int64, field ProfileField, value string) (*domain.Principal, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("principal not found: %d", id)
	}

	value = strings.TrimSpace(value)
	switch field {
	case FieldPhone:
		if err := domain.ValidatePhone(value); err != nil {
			return nil, err
		}
		p.Phone = value
	case FieldLocation:
		if len(value) > 200 {
			return nil, fmt.Errorf("location must be at most 200 characters")
		}
		p.Location = value
	case FieldBio:
		if err := domain.ValidateBio(value); err != nil {
			return nil, err
		}
		p.Bio = value
	default:
		return nil, fmt.Errorf("unknown profile field: %s", field)
	}

	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update principal: %w", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Principal, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter domain.Filter, limit, offset int) ([]*domain.Principal, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *Service) Count(ctx context.Context, filter domain.Filter) (int, error) {
	return s.repo.Count(ctx, filter)
}
