package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nur1kesh/ai-model-marketplace/internal/events"
	"github.com/nur1kesh/ai-model-marketplace/internal/ledger"
	"github.com/nur1kesh/ai-model-marketplace/internal/metrics"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
	repo "github.com/nur1kesh/ai-model-marketplace/internal/repository"
	"github.com/nur1kesh/ai-model-marketplace/internal/worker"
)

// TokenService is the fungible token ledger: balances, allowances, total
// supply and the last-transaction audit record. Every mutation runs in a
// single serializable transaction via the transfers repo.
type TokenService struct {
	accounts   repo.Accounts
	allowances repo.Allowances
	transfers  repo.Transfers
	users      repo.Users
	audit      repo.AuditLogs
	feed       *events.Feed
	wp         *worker.Pool
}

func NewTokenService(a repo.Accounts, al repo.Allowances, t repo.Transfers, u repo.Users, l repo.AuditLogs, f *events.Feed, wp *worker.Pool) *TokenService {
	return &TokenService{accounts: a, allowances: al, transfers: t, users: u, audit: l, feed: f, wp: wp}
}

// Bootstrap mints the initial supply to the owner account once. A second
// start with a non-zero supply is a no-op.
func (s *TokenService) Bootstrap(ctx context.Context, ownerID string, initial *models.Amount) error {
	supply, err := s.accounts.TotalSupply(ctx)
	if err != nil {
		return err
	}
	if !supply.IsZero() || initial.IsZero() {
		return nil
	}
	return s.transfers.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.accounts.CreditTx(ctx, tx, ownerID, initial); err != nil {
			return err
		}
		if err := s.accounts.AddSupplyTx(ctx, tx, initial); err != nil {
			return err
		}
		_, err := s.transfers.CreateTx(ctx, tx, models.Transfer{
			ToUserID: &ownerID,
			Amount:   initial,
			Kind:     models.TransferMint,
		})
		return err
	})
}

// Transfer moves amount from one holder to another. The caller is the
// sender; there is no delegation on this path.
func (s *TokenService) Transfer(ctx context.Context, fromID, toID string, amount *models.Amount) (models.Transfer, error) {
	if amount == nil || amount.IsZero() {
		return models.Transfer{}, ledger.ErrInvalidAmount
	}
	if fromID == toID {
		return models.Transfer{}, ledger.ErrSelfTransfer
	}

	var out models.Transfer
	err := s.transfers.WithTx(ctx, func(tx pgx.Tx) error {
		return s.moveTx(ctx, tx, &out, fromID, toID, amount, models.TransferPlain)
	})
	if err != nil {
		return models.Transfer{}, err
	}
	s.fanout(out, events.TokenTransfer)
	return out, nil
}

// Approve overwrites the spender's allowance; callers re-approve to
// change an existing grant.
func (s *TokenService) Approve(ctx context.Context, ownerID, spenderID string, amount *models.Amount) error {
	if amount == nil {
		return ledger.ErrInvalidAmount
	}
	err := s.transfers.WithTx(ctx, func(tx pgx.Tx) error {
		return s.allowances.SetTx(ctx, tx, ownerID, spenderID, amount)
	})
	if err != nil {
		return err
	}
	oid := ownerID
	s.wp.Submit(func() {
		_ = s.audit.Create(context.Background(), models.AuditLog{
			EntityType: "allowance",
			EntityID:   &oid,
			Action:     "approve",
			Details:    map[string]any{"spender_id": spenderID, "amount": amount.Dec()},
		})
	})
	return nil
}

// TransferFrom spends spenderID's allowance to move amount from ownerID
// to toID. The marketplace purchase flow rides on this path.
func (s *TokenService) TransferFrom(ctx context.Context, spenderID, ownerID, toID string, amount *models.Amount) (models.Transfer, error) {
	if amount == nil || amount.IsZero() {
		return models.Transfer{}, ledger.ErrInvalidAmount
	}

	var out models.Transfer
	err := s.transfers.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.allowances.SpendTx(ctx, tx, ownerID, spenderID, amount); err != nil {
			return err
		}
		return s.moveTx(ctx, tx, &out, ownerID, toID, amount, models.TransferDelegated)
	})
	if err != nil {
		return models.Transfer{}, err
	}
	s.fanout(out, events.TokenTransfer)
	return out, nil
}

// Mint creates amount new tokens for toID. Owner only.
func (s *TokenService) Mint(ctx context.Context, callerID, toID string, amount *models.Amount) (models.Transfer, error) {
	if amount == nil || amount.IsZero() {
		return models.Transfer{}, ledger.ErrInvalidAmount
	}
	if err := s.requireOwner(ctx, callerID); err != nil {
		return models.Transfer{}, err
	}

	var out models.Transfer
	err := s.transfers.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.accounts.CreditTx(ctx, tx, toID, amount); err != nil {
			return err
		}
		if err := s.accounts.AddSupplyTx(ctx, tx, amount); err != nil {
			return err
		}
		var err error
		out, err = s.transfers.CreateTx(ctx, tx, models.Transfer{
			ToUserID: &toID,
			Amount:   amount,
			Kind:     models.TransferMint,
		})
		return err
	})
	if err != nil {
		return models.Transfer{}, err
	}
	s.fanout(out, events.TokenMint)
	return out, nil
}

// Burn destroys amount tokens held by fromID. Owner only; supply and the
// balance shrink together.
func (s *TokenService) Burn(ctx context.Context, callerID, fromID string, amount *models.Amount) (models.Transfer, error) {
	if amount == nil || amount.IsZero() {
		return models.Transfer{}, ledger.ErrInvalidAmount
	}
	if err := s.requireOwner(ctx, callerID); err != nil {
		return models.Transfer{}, err
	}

	var out models.Transfer
	err := s.transfers.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.accounts.DebitTx(ctx, tx, fromID, amount); err != nil {
			return err
		}
		if err := s.accounts.SubSupplyTx(ctx, tx, amount); err != nil {
			return err
		}
		var err error
		out, err = s.transfers.CreateTx(ctx, tx, models.Transfer{
			FromUserID: &fromID,
			Amount:     amount,
			Kind:       models.TransferBurn,
		})
		return err
	})
	if err != nil {
		return models.Transfer{}, err
	}
	s.fanout(out, events.TokenBurn)
	return out, nil
}

// BurnFromTreasury burns from the treasury account. Owner only.
func (s *TokenService) BurnFromTreasury(ctx context.Context, callerID string, amount *models.Amount) (models.Transfer, error) {
	treasury, err := s.users.GetByRole(ctx, models.RoleTreasury)
	if err != nil {
		return models.Transfer{}, err
	}
	return s.Burn(ctx, callerID, treasury.ID, amount)
}

func (s *TokenService) BalanceOf(ctx context.Context, userID string) (models.Account, error) {
	return s.accounts.GetOrCreate(ctx, userID)
}

func (s *TokenService) TotalSupply(ctx context.Context) (*models.Amount, error) {
	return s.accounts.TotalSupply(ctx)
}

func (s *TokenService) Allowance(ctx context.Context, ownerID, spenderID string) (*models.Amount, error) {
	return s.allowances.Get(ctx, ownerID, spenderID)
}

func (s *TokenService) LastTransaction(ctx context.Context) (models.LastTransaction, error) {
	return s.transfers.LastTransaction(ctx)
}

func (s *TokenService) ListTransfers(ctx context.Context, userID string, limit, offset int) ([]models.Transfer, error) {
	return s.transfers.ListByUser(ctx, userID, limit, offset)
}

// moveTx is the shared debit+credit+record step used by every path that
// moves balance between two holders. Must run inside a WithTx closure.
func (s *TokenService) moveTx(ctx context.Context, tx pgx.Tx, out *models.Transfer, fromID, toID string, amount *models.Amount, kind models.TransferKind) error {
	if err := s.accounts.DebitTx(ctx, tx, fromID, amount); err != nil {
		return err
	}
	if err := s.accounts.CreditTx(ctx, tx, toID, amount); err != nil {
		return err
	}
	if err := s.transfers.SetLastTransactionTx(ctx, tx, models.LastTransaction{
		SenderID:   fromID,
		ReceiverID: toID,
		Amount:     amount,
		Timestamp:  time.Now(),
	}); err != nil {
		return err
	}
	t, err := s.transfers.CreateTx(ctx, tx, models.Transfer{
		FromUserID: &fromID,
		ToUserID:   &toID,
		Amount:     amount,
		Kind:       kind,
	})
	if err != nil {
		return err
	}
	*out = t
	return nil
}

func (s *TokenService) requireOwner(ctx context.Context, callerID string) error {
	owner, err := s.users.GetByRole(ctx, models.RoleOwner)
	if err != nil {
		return err
	}
	if owner.ID != callerID {
		return ledger.ErrNotOwner
	}
	return nil
}

// fanout records the committed transfer off the request path.
func (s *TokenService) fanout(t models.Transfer, eventType string) {
	s.wp.Submit(func() {
		metrics.TransfersTotal.WithLabelValues(string(t.Kind)).Inc()
		payload := map[string]any{
			"transfer_id": t.ID,
			"amount":      t.Amount.Dec(),
			"kind":        string(t.Kind),
		}
		if t.FromUserID != nil {
			payload["from_user_id"] = *t.FromUserID
		}
		if t.ToUserID != nil {
			payload["to_user_id"] = *t.ToUserID
		}
		s.feed.Publish(eventType, payload)

		id := t.ID
		_ = s.audit.Create(context.Background(), models.AuditLog{
			EntityType: "transfer",
			EntityID:   &id,
			Action:     string(t.Kind),
			Details:    payload,
		})
	})
}
