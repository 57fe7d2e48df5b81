package services

import (
	"context"
	"testing"
	"time"

	"github.com/nur1kesh/ai-model-marketplace/internal/auth"
	"github.com/nur1kesh/ai-model-marketplace/internal/events"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
	"github.com/nur1kesh/ai-model-marketplace/internal/worker"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *memStore
	users *memUsers

	userSvc *UserService
	token   *TokenService
	market  *MarketService
	feed    *events.Feed
	wp      *worker.Pool

	owner    models.User
	treasury models.User
}

func newFixture(t *testing.T, listingFee *models.Amount) *fixture {
	t.Helper()
	store := newMemStore()
	users := &memUsers{store}
	accounts := &memAccounts{store}
	allowances := &memAllowances{store}
	transfers := &memTransfers{store}
	listings := &memListings{store}
	audit := &memAudit{store}

	wp := worker.NewPool(1)
	t.Cleanup(wp.Stop)
	feed := events.NewFeed(64)

	tm := auth.NewTokenManager("access-secret", "refresh-secret", "test", 15*time.Minute, time.Hour)
	f := &fixture{
		store:   store,
		users:   users,
		userSvc: NewUserService(users, tm),
		token:   NewTokenService(accounts, allowances, transfers, users, audit, feed, wp),
		feed:    feed,
		wp:      wp,
	}
	f.market = NewMarketService(f.token, listings, users, audit, feed, wp, listingFee)

	var err error
	f.owner, err = users.Create(context.Background(), "owner", "owner@test.local", "x", models.RoleOwner)
	require.NoError(t, err)
	f.treasury, err = users.Create(context.Background(), "treasury", "treasury@test.local", "x", models.RoleTreasury)
	require.NoError(t, err)
	return f
}

func (f *fixture) user(t *testing.T, name string) models.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), name, name+"@test.local", "x", models.RoleUser)
	require.NoError(t, err)
	return u
}

// sync flushes the single-worker fanout queue so feed/audit assertions
// see everything submitted before it.
func (f *fixture) sync() {
	done := make(chan struct{})
	f.wp.Submit(func() { close(done) })
	<-done
}

func (f *fixture) balance(t *testing.T, userID string) string {
	t.Helper()
	a, err := f.token.BalanceOf(context.Background(), userID)
	require.NoError(t, err)
	return a.Amount.Dec()
}

// requireConservation checks that the sum of all balances equals the
// total supply.
func (f *fixture) requireConservation(t *testing.T) {
	t.Helper()
	sum, err := f.token.accounts.Sum(context.Background())
	require.NoError(t, err)
	supply, err := f.token.TotalSupply(context.Background())
	require.NoError(t, err)
	require.Equal(t, supply.Dec(), sum.Dec())
}
