package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradepost/tradepost/internal/domain/principal"
)

const principalColumns = `id, username, first_name, last_name, phone, location, bio, role, active, verified, suspension_reason, warning_count, password_hash, created_at, updated_at, last_seen_at`

// PrincipalRepository implements principal.Repository.
type PrincipalRepository struct {
	pool *pgxpool.Pool
}

func NewPrincipalRepository(pool *pgxpool.Pool) *PrincipalRepository {
	return &PrincipalRepository{pool: pool}
}

func (r *PrincipalRepository) Create(ctx context.Context, p *principal.Principal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO principals
		(id, username, first_name, last_name, phone, location, bio, role, active, verified, suspension_reason, warning_count, password_hash, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, p.ID, p.Username, p.FirstName, p.LastName, p.Phone, p.Location, p.Bio, p.Role, p.Active, p.Verified, p.SuspensionReason, p.WarningCount, p.PasswordHash, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PrincipalRepository) Update(ctx context.Context, p *principal.Principal) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE principals
		SET username=$1, first_name=$2, last_name=$3, phone=$4, location=$5, bio=$6, role=$7, active=$8, verified=$9, suspension_reason=$10, warning_count=$11, password_hash=$12, updated_at=$13
		WHERE id=$14
	`, p.Username, p.FirstName, p.LastName, p.Phone, p.Location, p.Bio, p.Role, p.Active, p.Verified, p.SuspensionReason, p.WarningCount, p.PasswordHash, p.UpdatedAt, p.ID)
	return err
}

func (r *PrincipalRepository) GetByID(ctx context.Context, id int64) (*principal.Principal, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id=$1`, id)
	return scanPrincipal(row)
}

func (r *PrincipalRepository) List(ctx context.Context, filter principal.Filter, limit, offset int) ([]*principal.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals`
	args := []interface{}{}
	idx := 1
	if filter.Role != nil {
		query += addWhere(query) + " role=$" + itoa(idx)
		args = append(args, *filter.Role)
		idx++
	}
	if filter.Active != nil {
		query += addWhere(query) + " active=$" + itoa(idx)
		args = append(args, *filter.Active)
		idx++
	}
	if filter.Verified != nil {
		query += addWhere(query) + " verified=$" + itoa(idx)
		args = append(args, *filter.Verified)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*principal.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PrincipalRepository) SetActive(ctx context.Context, id int64, active bool, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE principals SET active=$1, suspension_reason=$2, updated_at=$3 WHERE id=$4
	`, active, reason, time.Now().UTC(), id)
	return err
}

func (r *PrincipalRepository) SetRole(ctx context.Context, id int64, role principal.Role) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE principals SET role=$1, updated_at=$2 WHERE id=$3`, role, time.Now().UTC(), id)
	return err
}

func (r *PrincipalRepository) IncrementWarnings(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE principals SET warning_count=warning_count+1, updated_at=$1 WHERE id=$2`, time.Now().UTC(), id)
	return err
}

func (r *PrincipalRepository) Count(ctx context.Context, filter principal.Filter) (int, error) {
	query := `SELECT COUNT(1) FROM principals`
	args := []interface{}{}
	idx := 1
	if filter.Role != nil {
		query += addWhere(query) + " role=$" + itoa(idx)
		args = append(args, *filter.Role)
		idx++
	}
	if filter.Active != nil {
		query += addWhere(query) + " active=$" + itoa(idx)
		args = append(args, *filter.Active)
		idx++
	}
	if filter.Verified != nil {
		query += addWhere(query) + " verified=$" + itoa(idx)
		args = append(args, *filter.Verified)
	}
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanPrincipal(row pgx.Row) (*principal.Principal, error) {
	var p principal.Principal
	var lastSeen *time.Time
	if err := row.Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName, &p.Phone, &p.Location, &p.Bio, &p.Role, &p.Active, &p.Verified, &p.SuspensionReason, &p.WarningCount, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt, &lastSeen); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.LastSeenAt = lastSeen
	return &p, nil
}
