// Package redisstore persists conversation sessions in Redis so an
// abandoned flow expires on its own and a restart does not drop
// in-progress conversations.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	conv "github.com/tradepost/tradepost/internal/domain/conversation"
)

const keyPrefix = "conv:"

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Redis-backed session store. Sessions expire after ttl
// without activity; each Put refreshes the clock.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(principalID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, principalID)
}

func (s *Store) Get(ctx context.Context, principalID int64) (*conv.Session, error) {
	data, err := s.client.Get(ctx, key(principalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var sess conv.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

func (s *Store) Put(ctx context.Context, sess *conv.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, key(sess.PrincipalID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, principalID int64) error {
	if err := s.client.Del(ctx, key(principalID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
