package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/nur1kesh/ai-model-marketplace/internal/events"
	"github.com/nur1kesh/ai-model-marketplace/internal/ledger"
	"github.com/nur1kesh/ai-model-marketplace/internal/metrics"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
	repo "github.com/nur1kesh/ai-model-marketplace/internal/repository"
	"github.com/nur1kesh/ai-model-marketplace/internal/worker"
)

// MarketService is the marketplace ledger. It owns listings exclusively
// and touches token state only through the token service's transfer and
// allowance operations, inside the same database transaction.
//
// Payment model: token-based. A buyer approves the treasury for at least
// the price, then purchase spends that allowance and moves price tokens
// buyer -> seller. Listing fees (if configured) accumulate in the
// treasury until the owner withdraws them.
type MarketService struct {
	token    *TokenService
	listings repo.Listings
	users    repo.Users
	audit    repo.AuditLogs
	feed     *events.Feed
	wp       *worker.Pool

	listingFee *models.Amount
}

func NewMarketService(token *TokenService, l repo.Listings, u repo.Users, a repo.AuditLogs, f *events.Feed, wp *worker.Pool, listingFee *models.Amount) *MarketService {
	if listingFee == nil {
		listingFee = models.NewAmount(0)
	}
	return &MarketService{token: token, listings: l, users: u, audit: a, feed: f, wp: wp, listingFee: listingFee}
}

// ListModel creates a listing and charges the listing fee, atomically.
func (s *MarketService) ListModel(ctx context.Context, sellerID, name, description string, price *models.Amount, artifactURI string) (models.Listing, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(description) == "" {
		return models.Listing{}, ledger.ErrEmptyName
	}
	if price == nil || price.IsZero() {
		return models.Listing{}, ledger.ErrInvalidAmount
	}

	treasury, err := s.users.GetByRole(ctx, models.RoleTreasury)
	if err != nil {
		return models.Listing{}, err
	}

	var out models.Listing
	err = s.token.transfers.WithTx(ctx, func(tx pgx.Tx) error {
		if !s.listingFee.IsZero() {
			var fee models.Transfer
			if err := s.token.moveTx(ctx, tx, &fee, sellerID, treasury.ID, s.listingFee, models.TransferListingFee); err != nil {
				return err
			}
		}
		var err error
		out, err = s.listings.CreateTx(ctx, tx, models.Listing{
			Name:        strings.TrimSpace(name),
			Description: strings.TrimSpace(description),
			Price:       price,
			SellerID:    sellerID,
			ArtifactURI: artifactURI,
		})
		return err
	})
	if err != nil {
		return models.Listing{}, err
	}

	s.fanout(out.ID, "listed", events.ModelListed, map[string]any{
		"model_id":  out.ID,
		"seller_id": sellerID,
		"price":     price.Dec(),
	})
	metrics.ModelsListed.Inc()
	return out, nil
}

// PurchaseModel spends the buyer's allowance, moves price tokens
// buyer -> seller and marks the listing sold, all in one transaction.
func (s *MarketService) PurchaseModel(ctx context.Context, buyerID string, id int64) (models.Listing, error) {
	treasury, err := s.users.GetByRole(ctx, models.RoleTreasury)
	if err != nil {
		return models.Listing{}, err
	}

	var out models.Listing
	err = s.token.transfers.WithTx(ctx, func(tx pgx.Tx) error {
		l, err := s.listings.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if l.Sold {
			return ledger.ErrAlreadySold
		}
		if l.SellerID == buyerID {
			return ledger.ErrSelfPurchase
		}

		if err := s.token.allowances.SpendTx(ctx, tx, buyerID, treasury.ID, l.Price); err != nil {
			return err
		}
		var t models.Transfer
		if err := s.token.moveTx(ctx, tx, &t, buyerID, l.SellerID, l.Price, models.TransferPurchase); err != nil {
			return err
		}
		if err := s.listings.MarkSoldTx(ctx, tx, id, buyerID); err != nil {
			return err
		}
		l.Sold = true
		l.Buyers = []string{buyerID}
		out = l
		return nil
	})
	if err != nil {
		return models.Listing{}, err
	}

	s.fanout(id, "purchased", events.ModelPurchased, map[string]any{
		"model_id": id,
		"buyer_id": buyerID,
	})
	metrics.ModelsPurchased.Inc()
	metrics.TransfersTotal.WithLabelValues(string(models.TransferPurchase)).Inc()
	return out, nil
}

// RateModel records a 1-5 rating, one per identity per listing. The
// average is derived from the aggregates on read, never stored.
func (s *MarketService) RateModel(ctx context.Context, raterID string, id int64, rating int) (models.Listing, error) {
	if rating < 1 || rating > 5 {
		return models.Listing{}, ledger.ErrInvalidRating
	}

	var out models.Listing
	err := s.token.transfers.WithTx(ctx, func(tx pgx.Tx) error {
		l, err := s.listings.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if l.SellerID == raterID {
			return ledger.ErrSelfRating
		}
		if err := s.listings.AddRatingTx(ctx, tx, id, raterID, rating); err != nil {
			return err
		}
		l.RatingTotal += int64(rating)
		l.RatingCount++
		out = l
		return nil
	})
	if err != nil {
		return models.Listing{}, err
	}

	s.fanout(id, "rated", events.ModelRated, map[string]any{
		"model_id": id,
		"rater_id": raterID,
		"rating":   rating,
	})
	return out, nil
}

// DeleteModel removes an unsold listing. Seller only.
func (s *MarketService) DeleteModel(ctx context.Context, callerID string, id int64) error {
	err := s.token.transfers.WithTx(ctx, func(tx pgx.Tx) error {
		l, err := s.listings.GetTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if l.SellerID != callerID {
			return ledger.ErrNotOwner
		}
		if l.Sold {
			return ledger.ErrAlreadySold
		}
		return s.listings.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.fanout(id, "deleted", "", map[string]any{"model_id": id})
	return nil
}

// WithdrawFunds sweeps the treasury's whole balance to the owner. Only
// the owner may call it; an empty treasury is a successful no-op.
func (s *MarketService) WithdrawFunds(ctx context.Context, callerID string) (*models.Amount, error) {
	owner, err := s.users.GetByRole(ctx, models.RoleOwner)
	if err != nil {
		return nil, err
	}
	if owner.ID != callerID {
		return nil, ledger.ErrNotOwner
	}
	treasury, err := s.users.GetByRole(ctx, models.RoleTreasury)
	if err != nil {
		return nil, err
	}

	swept := models.NewAmount(0)
	err = s.token.transfers.WithTx(ctx, func(tx pgx.Tx) error {
		acct, err := s.token.accounts.GetTx(ctx, tx, treasury.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil // nothing accumulated yet
			}
			return err
		}
		if acct.Amount.IsZero() {
			return nil
		}
		swept = acct.Amount.Clone()
		var t models.Transfer
		return s.token.moveTx(ctx, tx, &t, treasury.ID, owner.ID, swept, models.TransferWithdrawal)
	})
	if err != nil {
		return nil, err
	}

	if !swept.IsZero() {
		s.fanout(0, "withdrawal", events.MarketWithdrawal, map[string]any{
			"owner_id": owner.ID,
			"amount":   swept.Dec(),
		})
		metrics.TransfersTotal.WithLabelValues(string(models.TransferWithdrawal)).Inc()
	}
	return swept, nil
}

// GetModelDetails returns a listing with its buyers loaded.
func (s *MarketService) GetModelDetails(ctx context.Context, id int64) (models.Listing, error) {
	l, err := s.listings.Get(ctx, id)
	if err != nil {
		return models.Listing{}, err
	}
	l.Buyers, err = s.listings.Buyers(ctx, id)
	if err != nil {
		return models.Listing{}, err
	}
	return l, nil
}

func (s *MarketService) ListModels(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	return s.listings.List(ctx, limit, offset)
}

func (s *MarketService) ModelCount(ctx context.Context) (int64, error) {
	return s.listings.Count(ctx)
}

func (s *MarketService) Owner(ctx context.Context) (models.User, error) {
	return s.users.GetByRole(ctx, models.RoleOwner)
}

func (s *MarketService) fanout(id int64, action, eventType string, payload map[string]any) {
	s.wp.Submit(func() {
		if eventType != "" {
			s.feed.Publish(eventType, payload)
		}
		eid := strconv.FormatInt(id, 10)
		_ = s.audit.Create(context.Background(), models.AuditLog{
			EntityType: "listing",
			EntityID:   &eid,
			Action:     action,
			Details:    payload,
		})
	})
}
