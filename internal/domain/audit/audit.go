package audit

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TargetType identifies what a moderation action acted on.
type TargetType string

const (
	TargetUser    TargetType = "user"
	TargetListing TargetType = "listing"
	TargetMessage TargetType = "message"
	TargetFilter  TargetType = "filter"
)

// Moderation action tags.
const (
	ActionBlockUser     = "block_user"
	ActionUnblockUser   = "unblock_user"
	ActionWarnUser      = "warn_user"
	ActionFlagListing   = "flag_listing"
	ActionUnflagListing = "unflag_listing"
	ActionDeleteListing = "delete_listing"
	ActionUpsertFilter  = "upsert_filter"
)

// DeniedSuffix marks entries recording a permission-denied attempt,
// written only when denied-attempt auditing is enabled.
const DeniedSuffix = ".denied"

// RiskLevel classifies the severity of an audited operation.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// DetermineRiskLevel maps an action tag to its risk classification.
// Account-level and destructive actions are high.
func DetermineRiskLevel(action string) RiskLevel {
	if strings.HasSuffix(action, DeniedSuffix) {
		return RiskLow
	}
	switch action {
	case ActionBlockUser, ActionDeleteListing:
		return RiskHigh
	case ActionWarnUser, ActionFlagListing, ActionUpsertFilter:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Entry is an immutable record of an authorized, applied moderation
// mutation. Append-only; never updated or deleted by the core.
type Entry struct {
	ID         int64           `json:"id"`
	EntryID    uuid.UUID       `json:"entryId"`
	ActorID    int64           `json:"actorId"`
	Action     string          `json:"action"`
	TargetType TargetType      `json:"targetType"`
	TargetID   string          `json:"targetId"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	RiskLevel  RiskLevel       `json:"riskLevel"`
	Signature  []byte          `json:"signature,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Record is the input for creating an entry.
type Record struct {
	ActorID    int64
	Action     string
	TargetType TargetType
	TargetID   string
	Detail     map[string]any
}

// NewEntry builds an Entry from a Record.
func NewEntry(rec Record) (*Entry, error) {
	entry := &Entry{
		EntryID:    uuid.New(),
		ActorID:    rec.ActorID,
		Action:     rec.Action,
		TargetType: rec.TargetType,
		TargetID:   rec.TargetID,
		RiskLevel:  DetermineRiskLevel(rec.Action),
		CreatedAt:  time.Now().UTC(),
	}
	if rec.Detail != nil {
		data, err := json.Marshal(rec.Detail)
		if err != nil {
			return nil, err
		}
		entry.Detail = data
	}
	return entry, nil
}

// QueryFilter restricts entry queries.
type QueryFilter struct {
	ActorID    *int64
	Action     *string
	TargetType *TargetType
	TargetID   *string
	RiskLevel  *RiskLevel
	StartTime  *time.Time
	EndTime    *time.Time
}

// Cursor is a (created_at, id) pagination cursor.
type Cursor struct {
	CreatedAt time.Time `json:"ts"`
	ID        int64     `json:"id"`
}

// Repository defines append-only persistence for audit entries.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByEntryID(ctx context.Context, entryID uuid.UUID) (*Entry, error)
	Query(ctx context.Context, filter QueryFilter, cursor *Cursor, limit int) ([]*Entry, *Cursor, error)
	GetByTarget(ctx context.Context, targetType TargetType, targetID string) ([]*Entry, error)
	Count(ctx context.Context, filter QueryFilter) (int64, error)
}
