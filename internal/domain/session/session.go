package session

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an authenticated admin dashboard session. This is
// distinct from a conversation session: it authorizes HTTP read views,
// not chat flows.
type Session struct {
	ID          int64      `json:"id"`
	SessionID   uuid.UUID  `json:"sessionId"`
	TokenHash   string     `json:"-"`
	PrincipalID int64      `json:"principalId"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	LastSeenAt  *time.Time `json:"lastSeenAt,omitempty"`
	UserAgent   *string    `json:"userAgent,omitempty"`
	IPAddress   *string    `json:"ipAddress,omitempty"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
