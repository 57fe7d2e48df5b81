package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
)

type transfersRepo struct{ pool *pgxpool.Pool }

func (r *transfersRepo) CreateTx(ctx context.Context, tx pgx.Tx, t models.Transfer) (models.Transfer, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := tx.QueryRow(ctx,
		`INSERT INTO token_transfers(id, from_user_id, to_user_id, amount, kind)
		 VALUES($1, $2, $3, $4::numeric, $5)
		 RETURNING created_at`,
		t.ID, t.FromUserID, t.ToUserID, t.Amount.Dec(), t.Kind,
	).Scan(&t.CreatedAt)
	return t, err
}

func (r *transfersRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transfer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, from_user_id, to_user_id, amount::text, kind, created_at
		   FROM token_transfers
		  WHERE from_user_id=$1 OR to_user_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transfer
	for rows.Next() {
		var (
			t   models.Transfer
			raw string
		)
		if err := rows.Scan(&t.ID, &t.FromUserID, &t.ToUserID, &raw, &t.Kind, &t.CreatedAt); err != nil {
			return nil, err
		}
		if t.Amount, err = models.ParseAmount(raw); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transfersRepo) LastTransaction(ctx context.Context) (models.LastTransaction, error) {
	var (
		l   models.LastTransaction
		raw string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT sender_id, receiver_id, amount::text, ts
		   FROM last_transaction
		  WHERE singleton`,
	).Scan(&l.SenderID, &l.ReceiverID, &raw, &l.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.LastTransaction{Amount: models.NewAmount(0)}, nil
	}
	if err != nil {
		return models.LastTransaction{}, err
	}
	l.Amount, err = models.ParseAmount(raw)
	return l, err
}

func (r *transfersRepo) SetLastTransactionTx(ctx context.Context, tx pgx.Tx, l models.LastTransaction) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO last_transaction(singleton, sender_id, receiver_id, amount, ts)
		 VALUES(true, $1, $2, $3::numeric, $4)
		 ON CONFLICT (singleton) DO UPDATE
		 SET sender_id = EXCLUDED.sender_id,
		     receiver_id = EXCLUDED.receiver_id,
		     amount = EXCLUDED.amount,
		     ts = EXCLUDED.ts`,
		l.SenderID, l.ReceiverID, l.Amount.Dec(), l.Timestamp,
	)
	return err
}

// WithTx runs fn inside one serializable transaction; this is what makes
// every multi-step ledger operation commit all steps or none.
func (r *transfersRepo) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
