package moderation

import "context"

// WarningRepository defines persistence for user warnings.
type WarningRepository interface {
	Create(ctx context.Context, w *Warning) error
	ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]*Warning, error)
	CountActive(ctx context.Context, userID int64) (int, error)
	Deactivate(ctx context.Context, id int64) error
	DeactivateExpired(ctx context.Context) (int, error)
}

// FilterRuleRepository defines persistence for content filter rules.
type FilterRuleRepository interface {
	Upsert(ctx context.Context, rule *FilterRule) error
	ListActive(ctx context.Context) ([]*FilterRule, error)
	SetActive(ctx context.Context, id int64, active bool) error
}
