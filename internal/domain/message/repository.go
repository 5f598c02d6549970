package message

import "context"

// Repository defines persistence for messages.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	ListBetween(ctx context.Context, a, b int64, limit, offset int) ([]*Message, error)
	MarkRead(ctx context.Context, id int64) error
	CountUnread(ctx context.Context, receiverID int64) (int, error)
}
