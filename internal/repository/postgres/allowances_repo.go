package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nur1kesh/ai-model-marketplace/internal/ledger"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
)

type allowancesRepo struct{ pool *pgxpool.Pool }

func (r *allowancesRepo) Get(ctx context.Context, ownerID, spenderID string) (*models.Amount, error) {
	var raw string
	err := r.pool.QueryRow(ctx,
		`SELECT amount::text FROM allowances WHERE owner_id=$1 AND spender_id=$2`,
		ownerID, spenderID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewAmount(0), nil
	}
	if err != nil {
		return nil, err
	}
	return models.ParseAmount(raw)
}

// SetTx overwrites the grant; approve is not additive.
func (r *allowancesRepo) SetTx(ctx context.Context, tx pgx.Tx, ownerID, spenderID string, amount *models.Amount) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO allowances(owner_id, spender_id, amount)
		 VALUES($1, $2, $3::numeric)
		 ON CONFLICT (owner_id, spender_id) DO UPDATE SET amount = EXCLUDED.amount`,
		ownerID, spenderID, amount.Dec(),
	)
	return err
}

func (r *allowancesRepo) SpendTx(ctx context.Context, tx pgx.Tx, ownerID, spenderID string, amount *models.Amount) error {
	tag, err := tx.Exec(ctx,
		`UPDATE allowances
		    SET amount = amount - $3::numeric
		  WHERE owner_id = $1 AND spender_id = $2 AND amount >= $3::numeric`,
		ownerID, spenderID, amount.Dec(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrInsufficientAllowance
	}
	return nil
}
