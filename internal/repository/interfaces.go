package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
)

// Methods with a pgx.Tx parameter are the tx-scoped halves of the ledger
// operations: services compose them inside a single WithTx closure so a
// purchase (allowance spend + balance move + mark sold) commits all steps
// or none.

type Users interface {
	Create(ctx context.Context, username, email, passwordHash, role string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByRole(ctx context.Context, role string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type Accounts interface {
	GetOrCreate(ctx context.Context, userID string) (models.Account, error)
	Get(ctx context.Context, userID string) (models.Account, error)
	GetTx(ctx context.Context, tx pgx.Tx, userID string) (models.Account, error)
	// Sum adds every balance up; with TotalSupply it checks conservation.
	Sum(ctx context.Context) (*models.Amount, error)
	TotalSupply(ctx context.Context) (*models.Amount, error)

	CreditTx(ctx context.Context, tx pgx.Tx, userID string, amount *models.Amount) error
	// DebitTx fails with ledger.ErrInsufficientBalance when the balance
	// cannot cover amount.
	DebitTx(ctx context.Context, tx pgx.Tx, userID string, amount *models.Amount) error
	AddSupplyTx(ctx context.Context, tx pgx.Tx, amount *models.Amount) error
	SubSupplyTx(ctx context.Context, tx pgx.Tx, amount *models.Amount) error
}

type Allowances interface {
	Get(ctx context.Context, ownerID, spenderID string) (*models.Amount, error)
	SetTx(ctx context.Context, tx pgx.Tx, ownerID, spenderID string, amount *models.Amount) error
	// SpendTx fails with ledger.ErrInsufficientAllowance when the grant
	// cannot cover amount.
	SpendTx(ctx context.Context, tx pgx.Tx, ownerID, spenderID string, amount *models.Amount) error
}

type Transfers interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t models.Transfer) (models.Transfer, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transfer, error)
	LastTransaction(ctx context.Context) (models.LastTransaction, error)
	SetLastTransactionTx(ctx context.Context, tx pgx.Tx, l models.LastTransaction) error

	// WithTx runs fn inside one serializable database transaction.
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
}

type Listings interface {
	CreateTx(ctx context.Context, tx pgx.Tx, l models.Listing) (models.Listing, error)
	Get(ctx context.Context, id int64) (models.Listing, error)
	GetTx(ctx context.Context, tx pgx.Tx, id int64) (models.Listing, error)
	List(ctx context.Context, limit, offset int) ([]models.Listing, error)
	Count(ctx context.Context) (int64, error)
	Buyers(ctx context.Context, id int64) ([]string, error)

	MarkSoldTx(ctx context.Context, tx pgx.Tx, id int64, buyerID string) error
	// AddRatingTx fails with ledger.ErrAlreadyRated when raterID already
	// has a rating on record for this listing.
	AddRatingTx(ctx context.Context, tx pgx.Tx, id int64, raterID string, rating int) error
	DeleteTx(ctx context.Context, tx pgx.Tx, id int64) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
	ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error)
}
