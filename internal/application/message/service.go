package message

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tradepost/tradepost/internal/domain/listing"
	domain "github.com/tradepost/tradepost/internal/domain/message"
)

// Service handles buyer-seller messaging.
type Service struct {
	repo     domain.Repository
	listings listing.Repository
	logger   zerolog.Logger
}

// NewService creates a message service.
func NewService(repo domain.Repository, listings listing.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		listings: listings,
		logger:   logger.With().Str("service", "message").Logger(),
	}
}

// Send delivers a message to the receiver.
func (s *Service) Send(ctx context.Context, senderID, receiverID int64, listingID *int64, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if err := domain.ValidateBody(body); err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("cannot send message to self")
	}

	m := &domain.Message{
		MessageID:  uuid.New(),
		ListingID:  listingID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	s.logger.Info().
		Str("message_id", m.MessageID.String()).
		Int64("sender_id", senderID).
		Int64("receiver_id", receiverID).
		Msg("message sent")
	return m, nil
}

// SendToSeller resolves the listing and delivers a message to its seller.
func (s *Service) SendToSeller(ctx context.Context, senderID, listingID int64, body string) (*domain.Message, error) {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listing: %w", err)
	}
	if l == nil {
		return nil, fmt.Errorf("listing not found: %d", listingID)
	}
	return s.Send(ctx, senderID, l.SellerID, &listingID, body)
}

func (s *Service) Conversation(ctx context.Context, a, b int64, limit, offset int) ([]*domain.Message, error) {
	return s.repo.ListBetween(ctx, a, b, limit, offset)
}

func (s *Service) MarkRead(ctx context.Context, id int64) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) UnreadCount(ctx context.Context, receiverID int64) (int, error) {
	return s.repo.CountUnread(ctx, receiverID)
}
