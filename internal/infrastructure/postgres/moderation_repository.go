package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradepost/tradepost/internal/domain/moderation"
)

// WarningRepository implements moderation.WarningRepository.
type WarningRepository struct {
	pool *pgxpool.Pool
}

func NewWarningRepository(pool *pgxpool.Pool) *WarningRepository {
	return &WarningRepository{pool: pool}
}

func (r *WarningRepository) Create(ctx context.Context, w *moderation.Warning) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO warnings (user_id, admin_id, reason, severity, active, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, w.UserID, w.AdminID, w.Reason, w.Severity, w.Active, w.CreatedAt, w.ExpiresAt).Scan(&w.ID)
}

func (r *WarningRepository) ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]*moderation.Warning, error) {
	query := `
		SELECT id, user_id, admin_id, reason, severity, active, created_at, expires_at
		FROM warnings WHERE user_id=$1`
	if activeOnly {
		query += ` AND active=TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*moderation.Warning
	for rows.Next() {
		var w moderation.Warning
		var expires *time.Time
		if err := rows.Scan(&w.ID, &w.UserID, &w.AdminID, &w.Reason, &w.Severity, &w.Active, &w.CreatedAt, &expires); err != nil {
			return nil, err
		}
		w.ExpiresAt = expires
		out = append(out, &w)
	}
	return out, rows.Err()
}

func (r *WarningRepository) CountActive(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM warnings WHERE user_id=$1 AND active=TRUE`, userID).Scan(&count)
	return count, err
}

func (r *WarningRepository) Deactivate(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE warnings SET active=FALSE WHERE id=$1`, id)
	return err
}

func (r *WarningRepository) DeactivateExpired(ctx context.Context) (int, error) {
	res, err := r.pool.Exec(ctx,
		`UPDATE warnings SET active=FALSE WHERE active=TRUE AND expires_at IS NOT NULL AND expires_at < $1`,
		time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return int(res.RowsAffected()), nil
}

// FilterRuleRepository implements moderation.FilterRuleRepository.
type FilterRuleRepository struct {
	pool *pgxpool.Pool
}

func NewFilterRuleRepository(pool *pgxpool.Pool) *FilterRuleRepository {
	return &FilterRuleRepository{pool: pool}
}

func (r *FilterRuleRepository) Upsert(ctx context.Context, rule *moderation.FilterRule) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO filter_rules (name, expression, created_by, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (name) DO UPDATE
		SET expression=EXCLUDED.expression, created_by=EXCLUDED.created_by, active=EXCLUDED.active, updated_at=EXCLUDED.updated_at
		RETURNING id
	`, rule.Name, rule.Expression, rule.CreatedBy, rule.Active, rule.CreatedAt, rule.UpdatedAt).Scan(&rule.ID)
}

func (r *FilterRuleRepository) ListActive(ctx context.Context) ([]*moderation.FilterRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, expression, created_by, active, created_at, updated_at
		FROM filter_rules WHERE active=TRUE ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*moderation.FilterRule
	for rows.Next() {
		rule, err := scanFilterRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *FilterRuleRepository) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE filter_rules SET active=$1, updated_at=$2 WHERE id=$3`, active, time.Now().UTC(), id)
	return err
}

func scanFilterRule(row pgx.Row) (*moderation.FilterRule, error) {
	var rule moderation.FilterRule
	if err := row.Scan(&rule.ID, &rule.Name, &rule.Expression, &rule.CreatedBy, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}
