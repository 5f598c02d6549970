package message

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxBodyLength = 4000

// Message is one buyer-seller communication tied to a listing.
type Message struct {
	ID         int64     `json:"id"`
	MessageID  uuid.UUID `json:"messageId"`
	ListingID  *int64    `json:"listingId,omitempty"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Body       string    `json:"body"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

func ValidateBody(body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return errors.New("message cannot be empty")
	}
	if len(body) > maxBodyLength {
		return errors.New("message cannot exceed 4000 characters")
	}
	return nil
}
