package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nur1kesh/ai-model-marketplace/internal/ledger"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
)

// Amounts are NUMERIC(78,0) in Postgres and uint256 in Go; they cross the
// boundary as decimal text ($n::numeric on the way in, amount::text out).

type accountsRepo struct{ pool *pgxpool.Pool }

func (r *accountsRepo) GetOrCreate(ctx context.Context, userID string) (models.Account, error) {
	if a, err := r.Get(ctx, userID); err == nil {
		return a, nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO token_accounts(user_id, amount, last_updated_at)
		 VALUES($1, 0, now())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return models.Account{}, err
	}
	return r.Get(ctx, userID)
}

func (r *accountsRepo) Get(ctx context.Context, userID string) (models.Account, error) {
	var (
		a   models.Account
		raw string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, amount::text, last_updated_at
		   FROM token_accounts
		  WHERE user_id=$1`,
		userID,
	).Scan(&a.UserID, &raw, &a.LastUpdatedAt)
	if err != nil {
		return models.Account{}, err
	}
	a.Amount, err = models.ParseAmount(raw)
	return a, err
}

func (r *accountsRepo) GetTx(ctx context.Context, tx pgx.Tx, userID string) (models.Account, error) {
	var (
		a   models.Account
		raw string
	)
	err := tx.QueryRow(ctx,
		`SELECT user_id, amount::text, last_updated_at
		   FROM token_accounts
		  WHERE user_id=$1
		    FOR UPDATE`,
		userID,
	).Scan(&a.UserID, &raw, &a.LastUpdatedAt)
	if err != nil {
		return models.Account{}, err
	}
	a.Amount, err = models.ParseAmount(raw)
	return a, err
}

func (r *accountsRepo) Sum(ctx context.Context) (*models.Amount, error) {
	var raw string
	if err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::text FROM token_accounts`,
	).Scan(&raw); err != nil {
		return nil, err
	}
	return models.ParseAmount(raw)
}

func (r *accountsRepo) TotalSupply(ctx context.Context) (*models.Amount, error) {
	var raw string
	if err := r.pool.QueryRow(ctx,
		`SELECT amount::text FROM token_supply WHERE singleton`,
	).Scan(&raw); err != nil {
		return nil, err
	}
	return models.ParseAmount(raw)
}

func (r *accountsRepo) CreditTx(ctx context.Context, tx pgx.Tx, userID string, amount *models.Amount) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO token_accounts(user_id, amount, last_updated_at)
		 VALUES($1, $2::numeric, now())
		 ON CONFLICT (user_id) DO UPDATE
		 SET amount = token_accounts.amount + EXCLUDED.amount,
		     last_updated_at = now()`,
		userID, amount.Dec(),
	)
	return err
}

func (r *accountsRepo) DebitTx(ctx context.Context, tx pgx.Tx, userID string, amount *models.Amount) error {
	tag, err := tx.Exec(ctx,
		`UPDATE token_accounts
		    SET amount = amount - $2::numeric,
		        last_updated_at = now()
		  WHERE user_id = $1 AND amount >= $2::numeric`,
		userID, amount.Dec(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrInsufficientBalance
	}
	return nil
}

func (r *accountsRepo) AddSupplyTx(ctx context.Context, tx pgx.Tx, amount *models.Amount) error {
	_, err := tx.Exec(ctx,
		`UPDATE token_supply SET amount = amount + $1::numeric WHERE singleton`,
		amount.Dec(),
	)
	return err
}

func (r *accountsRepo) SubSupplyTx(ctx context.Context, tx pgx.Tx, amount *models.Amount) error {
	tag, err := tx.Exec(ctx,
		`UPDATE token_supply
		    SET amount = amount - $1::numeric
		  WHERE singleton AND amount >= $1::numeric`,
		amount.Dec(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrInsufficientBalance
	}
	return nil
}
