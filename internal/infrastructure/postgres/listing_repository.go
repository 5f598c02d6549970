package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradepost/tradepost/internal/domain/listing"
)

const listingColumns = `id, seller_id, title, description, price, currency, category, location, status, flagged, flag_reason, views, created_at, updated_at`

// ListingRepository implements listing.Repository.
type ListingRepository struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO listings
		(seller_id, title, description, price, currency, category, location, status, flagged, flag_reason, views, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`, l.SellerID, l.Title, l.Description, l.Price, l.Currency, l.Category, l.Location, l.Status, l.Flagged, l.FlagReason, l.Views, l.CreatedAt, l.UpdatedAt).Scan(&l.ID)
}

func (r *ListingRepository) Update(ctx context.Context, l *listing.Listing) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE listings
		SET title=$1, description=$2, price=$3, currency=$4, category=$5, location=$6, status=$7, flagged=$8, flag_reason=$9, updated_at=$10
		WHERE id=$11
	`, l.Title, l.Description, l.Price, l.Currency, l.Category, l.Location, l.Status, l.Flagged, l.FlagReason, l.UpdatedAt, l.ID)
	return err
}

func (r *ListingRepository) GetByID(ctx context.Context, id int64) (*listing.Listing, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id=$1`, id)
	l, err := scanListing(row)
	if err != nil || l == nil {
		return l, err
	}
	if err := r.loadPhotos(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *ListingRepository) Search(ctx context.Context, filter listing.Filter, limit, offset int) ([]*listing.Listing, error) {
	query, args, idx := searchQuery(`SELECT `+listingColumns+` FROM listings`, filter)
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, l := range out {
		if err := r.loadPhotos(ctx, l); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *ListingRepository) Count(ctx context.Context, filter listing.Filter) (int, error) {
	query, args, _ := searchQuery(`SELECT COUNT(1) FROM listings`, filter)
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func searchQuery(base string, filter listing.Filter) (string, []interface{}, int) {
	query := base
	args := []interface{}{}
	idx := 1
	if filter.Query != "" {
		query += addWhere(query) + " (title ILIKE $" + itoa(idx) + " OR description ILIKE $" + itoa(idx) + ")"
		args = append(args, "%"+filter.Query+"%")
		idx++
	}
	if filter.Category != "" {
		query += addWhere(query) + " category=$" + itoa(idx)
		args = append(args, filter.Category)
		idx++
	}
	if filter.MinPrice != nil {
		query += addWhere(query) + " price >= $" + itoa(idx)
		args = append(args, *filter.MinPrice)
		idx++
	}
	if filter.MaxPrice != nil {
		query += addWhere(query) + " price <= $" + itoa(idx)
		args = append(args, *filter.MaxPrice)
		idx++
	}
	if filter.SellerID != nil {
		query += addWhere(query) + " seller_id=$" + itoa(idx)
		args = append(args, *filter.SellerID)
		idx++
	}
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.Flagged != nil {
		query += addWhere(query) + " flagged=$" + itoa(idx)
		args = append(args, *filter.Flagged)
		idx++
	}
	return query, args, idx
}

func (r *ListingRepository) AddPhoto(ctx context.Context, photo *listing.Photo) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO listing_photos (listing_id, file_ref, is_primary, created_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, photo.ListingID, photo.FileRef, photo.Primary, photo.CreatedAt).Scan(&photo.ID)
}

func (r *ListingRepository) SetFlag(ctx context.Context, id int64, flagged bool, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE listings SET flagged=$1, flag_reason=$2, updated_at=$3 WHERE id=$4`,
		flagged, reason, time.Now().UTC(), id)
	return err
}

func (r *ListingRepository) SetStatus(ctx context.Context, id int64, status listing.Status) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE listings SET status=$1, updated_at=$2 WHERE id=$3`, status, time.Now().UTC(), id)
	return err
}

func (r *ListingRepository) IncrementViews(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE listings SET views=views+1 WHERE id=$1`, id)
	return err
}

func (r *ListingRepository) loadPhotos(ctx context.Context, l *listing.Listing) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, listing_id, file_ref, is_primary, created_at
		FROM listing_photos WHERE listing_id=$1 ORDER BY is_primary DESC, id
	`, l.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p listing.Photo
		if err := rows.Scan(&p.ID, &p.ListingID, &p.FileRef, &p.Primary, &p.CreatedAt); err != nil {
			return err
		}
		l.Photos = append(l.Photos, p)
	}
	return rows.Err()
}

func scanListing(row pgx.Row) (*listing.Listing, error) {
	var l listing.Listing
	if err := row.Scan(&l.ID, &l.SellerID, &l.Title, &l.Description, &l.Price, &l.Currency, &l.Category, &l.Location, &l.Status, &l.Flagged, &l.FlagReason, &l.Views, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}
