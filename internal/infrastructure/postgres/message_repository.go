package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradepost/tradepost/internal/domain/message"
)

// MessageRepository implements message.Repository.
type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Create(ctx context.Context, m *message.Message) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO messages (message_id, listing_id, sender_id, receiver_id, body, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, m.MessageID, m.ListingID, m.SenderID, m.ReceiverID, m.Body, m.Read, m.CreatedAt).Scan(&m.ID)
}

func (r *MessageRepository) ListBetween(ctx context.Context, a, b int64, limit, offset int) ([]*message.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, message_id, listing_id, sender_id, receiver_id, body, read, created_at
		FROM messages
		WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, a, b, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*message.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepository) MarkRead(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE messages SET read=TRUE WHERE id=$1`, id)
	return err
}

func (r *MessageRepository) CountUnread(ctx context.Context, receiverID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM messages WHERE receiver_id=$1 AND read=FALSE`, receiverID).Scan(&count)
	return count, err
}

func scanMessage(row pgx.Row) (*message.Message, error) {
	var m message.Message
	var listingID *int64
	if err := row.Scan(&m.ID, &m.MessageID, &listingID, &m.SenderID, &m.ReceiverID, &m.Body, &m.Read, &m.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	m.ListingID = listingID
	return &m, nil
}
