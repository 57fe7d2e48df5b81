package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nur1kesh/ai-model-marketplace/internal/ledger"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
)

type listingsRepo struct{ pool *pgxpool.Pool }

const listingCols = `id, name, description, price::text, seller_id, artifact_uri, sold, rating_total, rating_count, created_at`

func scanListing(row pgx.Row) (models.Listing, error) {
	var (
		l   models.Listing
		raw string
	)
	err := row.Scan(&l.ID, &l.Name, &l.Description, &raw, &l.SellerID,
		&l.ArtifactURI, &l.Sold, &l.RatingTotal, &l.RatingCount, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Listing{}, ledger.ErrNotFound
	}
	if err != nil {
		return models.Listing{}, err
	}
	l.Price, err = models.ParseAmount(raw)
	return l, err
}

func (r *listingsRepo) CreateTx(ctx context.Context, tx pgx.Tx, l models.Listing) (models.Listing, error) {
	err := tx.QueryRow(ctx,
		`INSERT INTO listings(name, description, price, seller_id, artifact_uri)
		 VALUES($1, $2, $3::numeric, $4, $5)
		 RETURNING id, created_at`,
		l.Name, l.Description, l.Price.Dec(), l.SellerID, l.ArtifactURI,
	).Scan(&l.ID, &l.CreatedAt)
	return l, err
}

func (r *listingsRepo) Get(ctx context.Context, id int64) (models.Listing, error) {
	return scanListing(r.pool.QueryRow(ctx,
		`SELECT `+listingCols+` FROM listings WHERE id=$1`, id))
}

func (r *listingsRepo) GetTx(ctx context.Context, tx pgx.Tx, id int64) (models.Listing, error) {
	return scanListing(tx.QueryRow(ctx,
		`SELECT `+listingCols+` FROM listings WHERE id=$1 FOR UPDATE`, id))
}

func (r *listingsRepo) List(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+listingCols+` FROM listings ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *listingsRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n)
	return n, err
}

func (r *listingsRepo) Buyers(ctx context.Context, id int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT buyer_id FROM listing_buyers WHERE listing_id=$1 ORDER BY purchased_at`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *listingsRepo) MarkSoldTx(ctx context.Context, tx pgx.Tx, id int64, buyerID string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE listings SET sold = true WHERE id=$1 AND NOT sold`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAlreadySold
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO listing_buyers(listing_id, buyer_id) VALUES($1, $2)`,
		id, buyerID,
	)
	return err
}

func (r *listingsRepo) AddRatingTx(ctx context.Context, tx pgx.Tx, id int64, raterID string, rating int) error {
	tag, err := tx.Exec(ctx,
		`INSERT INTO listing_ratings(listing_id, rater_id, rating)
		 VALUES($1, $2, $3)
		 ON CONFLICT (listing_id, rater_id) DO NOTHING`,
		id, raterID, rating,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAlreadyRated
	}
	_, err = tx.Exec(ctx,
		`UPDATE listings
		    SET rating_total = rating_total + $2,
		        rating_count = rating_count + 1
		  WHERE id=$1`,
		id, rating,
	)
	return err
}

func (r *listingsRepo) DeleteTx(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM listings WHERE id=$1`, id)
	return err
}
