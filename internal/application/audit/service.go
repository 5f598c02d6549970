package audit

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tradepost/tradepost/internal/domain/audit"
)

// Service records moderation audit entries. Writes are synchronous: an
// admin mutation is not considered final until its entry is durable.
type Service struct {
	repo    audit.Repository
	logger  zerolog.Logger
	signKey []byte
}

// NewService creates an audit recorder.
func NewService(repo audit.Repository, logger zerolog.Logger, signKey []byte) *Service {
	return &Service{
		repo:    repo,
		signKey: signKey,
		logger:  logger.With().Str("service", "audit").Logger(),
	}
}

// Record creates a new audit entry from the record, signing it when a
// key is configured.
func (s *Service) Record(ctx context.Context, rec audit.Record) error {
	entry, err := audit.NewEntry(rec)
	if err != nil {
		return fmt.Errorf("failed to build audit entry: %w", err)
	}

	if len(s.signKey) > 0 {
		sig, err := audit.Sign(entry, s.signKey)
		if err != nil {
			return fmt.Errorf("failed to sign audit entry: %w", err)
		}
		entry.Signature = sig
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to save audit entry: %w", err)
	}

	s.logger.Debug().
		Str("entry_id", entry.EntryID.String()).
		Int64("actor_id", entry.ActorID).
		Str("action", entry.Action).
		Str("target_type", string(entry.TargetType)).
		Str("target_id", entry.TargetID).
		Msg("audit entry recorded")

	if entry.RiskLevel == audit.RiskHigh {
		s.logger.Warn().
			Str("entry_id", entry.EntryID.String()).
			Int64("actor_id", entry.ActorID).
			Str("action", entry.Action).
			Str("target_id", entry.TargetID).
			Msg("high-risk moderation action")
	}

	return nil
}

// QueryParams represents query parameters for audit entries.
type QueryParams struct {
	ActorID    *int64
	Action     *string
	TargetType *string
	TargetID   *string
	RiskLevel  *string
	Cursor     *string
	Limit      int
}

// QueryResult is a page of audit entries.
type QueryResult struct {
	Entries []*audit.Entry `json:"entries"`
	Cursor  *string        `json:"cursor,omitempty"`
	HasMore bool           `json:"hasMore"`
	Count   int            `json:"count"`
}

// Query retrieves audit entries with cursor pagination.
func (s *Service) Query(ctx context.Context, params QueryParams) (*QueryResult, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Limit > 200 {
		params.Limit = 200
	}

	var cursor *audit.Cursor
	if params.Cursor != nil && *params.Cursor != "" {
		c, err := decodeCursor(*params.Cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		cursor = c
	}

	filter := audit.QueryFilter{
		ActorID: params.ActorID,
		Action:  params.Action,
	}
	if params.TargetType != nil {
		tt := audit.TargetType(*params.TargetType)
		filter.TargetType = &tt
	}
	if params.TargetID != nil {
		filter.TargetID = params.TargetID
	}
	if params.RiskLevel != nil {
		rl := audit.RiskLevel(*params.RiskLevel)
		filter.RiskLevel = &rl
	}

	entries, nextCursor, err := s.repo.Query(ctx, filter, cursor, params.Limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query audit entries")
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}

	result := &QueryResult{
		Entries: entries,
		Count:   len(entries),
		HasMore: nextCursor != nil,
	}
	if nextCursor != nil {
		encoded, err := encodeCursor(nextCursor)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to encode cursor")
		} else {
			result.Cursor = &encoded
		}
	}
	return result, nil
}

// GetByEntryID retrieves a single entry.
func (s *Service) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*audit.Entry, error) {
	entry, err := s.repo.GetByEntryID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}
	return entry, nil
}

// TargetHistory retrieves all entries recorded against one target.
func (s *Service) TargetHistory(ctx context.Context, targetType audit.TargetType, targetID string) ([]*audit.Entry, error) {
	entries, err := s.repo.GetByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get target history: %w", err)
	}
	return entries, nil
}

func encodeCursor(c *audit.Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

func decodeCursor(s string) (*audit.Cursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	var c audit.Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
