package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradepost/tradepost/internal/domain/audit"
)

const auditColumns = `id, entry_id, actor_id, action, target_type, target_id, detail, risk_level, signature, created_at`

// AuditRepository implements audit.Repository. Entries are append-only:
// there is no update or delete path.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO audit_entries
		(entry_id, actor_id, action, target_type, target_id, detail, risk_level, signature, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, entry.EntryID, entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, entry.Detail, entry.RiskLevel, entry.Signature, entry.CreatedAt).Scan(&entry.ID)
}

func (r *AuditRepository) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*audit.Entry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+auditColumns+` FROM audit_entries WHERE entry_id=$1`, entryID)
	return scanAuditEntry(row)
}

func (r *AuditRepository) Query(ctx context.Context, filter audit.QueryFilter, cursor *audit.Cursor, limit int) ([]*audit.Entry, *audit.Cursor, error) {
	query, args, idx := auditQuery(`SELECT `+auditColumns+` FROM audit_entries`, filter)
	if cursor != nil {
		query += addWhere(query) + " (created_at, id) < ($" + itoa(idx) + ", $" + itoa(idx+1) + ")"
		args = append(args, cursor.CreatedAt, cursor.ID)
		idx += 2
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT $" + itoa(idx)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var nextCursor *audit.Cursor
	if len(entries) == limit {
		last := entries[len(entries)-1]
		nextCursor = &audit.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return entries, nextCursor, nil
}

func (r *AuditRepository) GetByTarget(ctx context.Context, targetType audit.TargetType, targetID string) ([]*audit.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+auditColumns+` FROM audit_entries
		WHERE target_type=$1 AND target_id=$2 ORDER BY created_at DESC
	`, targetType, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*audit.Entry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *AuditRepository) Count(ctx context.Context, filter audit.QueryFilter) (int64, error) {
	query, args, _ := auditQuery(`SELECT COUNT(1) FROM audit_entries`, filter)
	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func auditQuery(base string, filter audit.QueryFilter) (string, []interface{}, int) {
	query := base
	args := []interface{}{}
	idx := 1
	if filter.ActorID != nil {
		query += addWhere(query) + " actor_id=$" + itoa(idx)
		args = append(args, *filter.ActorID)
		idx++
	}
	if filter.Action != nil {
		query += addWhere(query) + " action=$" + itoa(idx)
		args = append(args, *filter.Action)
		idx++
	}
	if filter.TargetType != nil {
		query += addWhere(query) + " target_type=$" + itoa(idx)
		args = append(args, *filter.TargetType)
		idx++
	}
	if filter.TargetID != nil {
		query += addWhere(query) + " target_id=$" + itoa(idx)
		args = append(args, *filter.TargetID)
		idx++
	}
	if filter.RiskLevel != nil {
		query += addWhere(query) + " risk_level=$" + itoa(idx)
		args = append(args, *filter.RiskLevel)
		idx++
	}
	if filter.StartTime != nil {
		query += addWhere(query) + " created_at >= $" + itoa(idx)
		args = append(args, *filter.StartTime)
		idx++
	}
	if filter.EndTime != nil {
		query += addWhere(query) + " created_at <= $" + itoa(idx)
		args = append(args, *filter.EndTime)
		idx++
	}
	return query, args, idx
}

func scanAuditEntry(row pgx.Row) (*audit.Entry, error) {
	var entry audit.Entry
	if err := row.Scan(&entry.ID, &entry.EntryID, &entry.ActorID, &entry.Action, &entry.TargetType, &entry.TargetID, &entry.Detail, &entry.RiskLevel, &entry.Signature, &entry.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}
