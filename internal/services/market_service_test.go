package services

import (
	"context"
	"testing"

	"github.com/nur1kesh/ai-model-marketplace/internal/events"
	"github.com/nur1kesh/ai-model-marketplace/internal/ledger"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
	"github.com/stretchr/testify/require"
)

func TestListModel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seller := f.user(t, "seller")

	l, err := f.market.ListModel(ctx, seller.ID, "Classifier", "Image classifier", models.Units(100), "ipfs://QmExample")
	require.NoError(t, err)
	require.Equal(t, int64(1), l.ID)

	got, err := f.market.GetModelDetails(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, seller.ID, got.SellerID)
	require.Equal(t, models.Units(100).Dec(), got.Price.Dec())
	require.False(t, got.Sold)
	require.Zero(t, got.AverageRating())
	require.Empty(t, got.Buyers)
	require.Equal(t, "ipfs://QmExample", got.ArtifactURI)

	n, err := f.market.ModelCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestListModelValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seller := f.user(t, "seller")

	_, err := f.market.ListModel(ctx, seller.ID, "  ", "desc", models.Units(1), "")
	require.ErrorIs(t, err, ledger.ErrEmptyName)
	_, err = f.market.ListModel(ctx, seller.ID, "name", "", models.Units(1), "")
	require.ErrorIs(t, err, ledger.ErrEmptyName)
	_, err = f.market.ListModel(ctx, seller.ID, "name", "desc", models.NewAmount(0), "")
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = f.market.ListModel(ctx, seller.ID, "name", "desc", nil, "")
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestListModelChargesFee(t *testing.T) {
	f := newFixture(t, models.Units(1))
	ctx := context.Background()
	require.NoError(t, f.token.Bootstrap(ctx, f.owner.ID, models.Units(100)))
	seller := f.user(t, "seller")
	_, err := f.token.Transfer(ctx, f.owner.ID, seller.ID, models.Units(5))
	require.NoError(t, err)

	_, err = f.market.ListModel(ctx, seller.ID, "Model", "Desc", models.Units(10), "")
	require.NoError(t, err)
	require.Equal(t, models.Units(4).Dec(), f.balance(t, seller.ID))
	require.Equal(t, models.Units(1).Dec(), f.balance(t, f.treasury.ID))
	f.requireConservation(t)
}

func TestListModelFeeRequiresBalance(t *testing.T) {
	f := newFixture(t, models.Units(1))
	ctx := context.Background()
	broke := f.user(t, "broke")

	_, err := f.market.ListModel(ctx, broke.ID, "Model", "Desc", models.Units(10), "")
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	n, err := f.market.ModelCount(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

// purchase moves price tokens buyer -> seller via the approved allowance
// and is rejected the second time.
func TestPurchaseModel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.token.Bootstrap(ctx, f.owner.ID, models.Units(100)))
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	_, err := f.token.Transfer(ctx, f.owner.ID, buyer.ID, models.Units(1))
	require.NoError(t, err)

	l, err := f.market.ListModel(ctx, seller.ID, "Model", "Desc", models.Units(1), "")
	require.NoError(t, err)

	require.NoError(t, f.token.Approve(ctx, buyer.ID, f.treasury.ID, models.Units(1)))
	got, err := f.market.PurchaseModel(ctx, buyer.ID, l.ID)
	require.NoError(t, err)
	require.True(t, got.Sold)

	require.Equal(t, "0", f.balance(t, buyer.ID))
	require.Equal(t, models.Units(1).Dec(), f.balance(t, seller.ID))

	details, err := f.market.GetModelDetails(ctx, l.ID)
	require.NoError(t, err)
	require.True(t, details.Sold)
	require.Equal(t, []string{buyer.ID}, details.Buyers)

	// second purchase is rejected and moves nothing
	other := f.user(t, "other")
	_, err = f.token.Transfer(ctx, f.owner.ID, other.ID, models.Units(1))
	require.NoError(t, err)
	require.NoError(t, f.token.Approve(ctx, other.ID, f.treasury.ID, models.Units(1)))
	_, err = f.market.PurchaseModel(ctx, other.ID, l.ID)
	require.ErrorIs(t, err, ledger.ErrAlreadySold)
	require.Equal(t, models.Units(1).Dec(), f.balance(t, other.ID))
	require.Equal(t, models.Units(1).Dec(), f.balance(t, seller.ID))

	purchases := 0
	for _, tr := range f.store.transfers {
		if tr.Kind == models.TransferPurchase {
			purchases++
		}
	}
	require.Equal(t, 1, purchases)
	f.requireConservation(t)
}

func TestPurchaseOwnModel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seller := f.user(t, "seller")

	l, err := f.market.ListModel(ctx, seller.ID, "Model", "Desc", models.Units(1), "")
	require.NoError(t, err)

	_, err = f.market.PurchaseModel(ctx, seller.ID, l.ID)
	require.ErrorIs(t, err, ledger.ErrSelfPurchase)

	got, err := f.market.GetModelDetails(ctx, l.ID)
	require.NoError(t, err)
	require.False(t, got.Sold)
}

func TestPurchaseRequiresApproval(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.token.Bootstrap(ctx, f.owner.ID, models.Units(10)))
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	_, err := f.token.Transfer(ctx, f.owner.ID, buyer.ID, models.Units(2))
	require.NoError(t, err)

	l, err := f.market.ListModel(ctx, seller.ID, "Model", "Desc", models.Units(1), "")
	require.NoError(t, err)

	_, err = f.market.PurchaseModel(ctx, buyer.ID, l.ID)
	require.ErrorIs(t, err, ledger.ErrInsufficientAllowance)
	require.Equal(t, models.Units(2).Dec(), f.balance(t, buyer.ID))
}

func TestPurchaseUnknownModel(t *testing.T) {
	f := newFixture(t, nil)
	buyer := f.user(t, "buyer")
	_, err := f.market.PurchaseModel(context.Background(), buyer.ID, 42)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRateModel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	seller := f.user(t, "seller")
	r1 := f.user(t, "rater1")
	r2 := f.user(t, "rater2")

	l, err := f.market.ListModel(ctx, seller.ID, "Model", "Desc", models.Units(1), "")
	require.NoError(t, err)

	for _, bad := range []int{0, 6, -1} {
		_, err := f.market.RateModel(ctx, r1.ID, l.ID, bad)
		require.ErrorIs(t, err, ledger.ErrInvalidRating)
	}

	_, err = f.market.RateModel(ctx, seller.ID, l.ID, 5)
	require.ErrorIs(t, err, ledger.ErrSelfRating)

	got, err := f.market.RateModel(ctx, r1.ID, l.ID, 5)
	require.NoError(t, err)
	require.InDelta(t, 5.0, got.AverageRating(), 1e-9)

	// a second rating by the same caller changes nothing
	_, err = f.market.RateModel(ctx, r1.ID, l.ID, 3)
	require.ErrorIs(t, err, ledger.ErrAlreadyRated)
	got, err = f.market.GetModelDetails(ctx, l.ID)
	require.NoError(t, err)
	require.InDelta(t, 5.0, got.AverageRating(), 1e-9)

	got, err = f.market.RateModel(ctx, r2.ID, l.ID, 3)
	require.NoError(t, err)
	require.InDelta(t, 4.0, got.AverageRating(), 1e-9)

	_, err = f.market.RateModel(ctx, r1.ID, 99, 4)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDeleteModel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.token.Bootstrap(ctx, f.owner.ID, models.Units(10)))
	seller := f.user(t, "seller")
	other := f.user(t, "other")

	l, err := f.market.ListModel(ctx, seller.ID, "Model", "Desc", models.Units(1), "")
	require.NoError(t, err)

	require.ErrorIs(t, f.market.DeleteModel(ctx, other.ID, l.ID), ledger.ErrNotOwner)

	require.NoError(t, f.market.DeleteModel(ctx, seller.ID, l.ID))
	_, err = f.market.GetModelDetails(ctx, l.ID)
	require.ErrorIs(t, err, ledger.ErrNotFound)

	// sold listings cannot be deleted
	l2, err := f.market.ListModel(ctx, seller.ID, "Model2", "Desc", models.Units(1), "")
	require.NoError(t, err)
	buyer := f.user(t, "buyer")
	_, err = f.token.Transfer(ctx, f.owner.ID, buyer.ID, models.Units(1))
	require.NoError(t, err)
	require.NoError(t, f.token.Approve(ctx, buyer.ID, f.treasury.ID, models.Units(1)))
	_, err = f.market.PurchaseModel(ctx, buyer.ID, l2.ID)
	require.NoError(t, err)
	require.ErrorIs(t, f.market.DeleteModel(ctx, seller.ID, l2.ID), ledger.ErrAlreadySold)
}

func TestWithdrawFunds(t *testing.T) {
	f := newFixture(t, models.Units(2))
	ctx := context.Background()
	require.NoError(t, f.token.Bootstrap(ctx, f.owner.ID, models.Units(100)))
	seller := f.user(t, "seller")
	_, err := f.token.Transfer(ctx, f.owner.ID, seller.ID, models.Units(10))
	require.NoError(t, err)

	_, err = f.market.ListModel(ctx, seller.ID, "Model", "Desc", models.Units(5), "")
	require.NoError(t, err)
	require.Equal(t, models.Units(2).Dec(), f.balance(t, f.treasury.ID))

	// non-owner cannot withdraw, nothing moves
	_, err = f.market.WithdrawFunds(ctx, seller.ID)
	require.ErrorIs(t, err, ledger.ErrNotOwner)
	require.Equal(t, models.Units(2).Dec(), f.balance(t, f.treasury.ID))

	swept, err := f.market.WithdrawFunds(ctx, f.owner.ID)
	require.NoError(t, err)
	require.Equal(t, models.Units(2).Dec(), swept.Dec())
	require.Equal(t, "0", f.balance(t, f.treasury.ID))
	require.Equal(t, models.Units(92).Dec(), f.balance(t, f.owner.ID))

	// empty treasury: withdrawal is a no-op, not an error
	swept, err = f.market.WithdrawFunds(ctx, f.owner.ID)
	require.NoError(t, err)
	require.True(t, swept.IsZero())
	f.requireConservation(t)
}

func TestMarketplaceEvents(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.token.Bootstrap(ctx, f.owner.ID, models.Units(10)))
	seller := f.user(t, "seller")
	buyer := f.user(t, "buyer")
	_, err := f.token.Transfer(ctx, f.owner.ID, buyer.ID, models.Units(1))
	require.NoError(t, err)

	l, err := f.market.ListModel(ctx, seller.ID, "Model", "Desc", models.Units(1), "")
	require.NoError(t, err)
	require.NoError(t, f.token.Approve(ctx, buyer.ID, f.treasury.ID, models.Units(1)))
	_, err = f.market.PurchaseModel(ctx, buyer.ID, l.ID)
	require.NoError(t, err)
	f.sync()

	types := map[string]bool{}
	for _, e := range f.feed.Recent(0) {
		types[e.Type] = true
	}
	require.True(t, types[events.ModelListed])
	require.True(t, types[events.ModelPurchased])
	require.True(t, types[events.TokenTransfer])
}
