package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nur1kesh/ai-model-marketplace/internal/ledger"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
)

// In-memory repository implementations for service tests. The pgx.Tx
// parameter is unused; WithTx runs the closure directly, and every
// failure path in the services fires before any mutation, so the fakes
// do not need rollback.

type memStore struct {
	mu sync.Mutex

	users    map[string]models.User
	accounts map[string]*models.Amount
	supply   *models.Amount
	allow    map[string]*models.Amount // owner + "|" + spender

	transfers []models.Transfer
	last      models.LastTransaction

	listings    map[int64]*models.Listing
	nextListing int64
	buyers      map[int64][]string
	ratings     map[int64]map[string]int

	audits []models.AuditLog
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]models.User{},
		accounts:    map[string]*models.Amount{},
		supply:      models.NewAmount(0),
		allow:       map[string]*models.Amount{},
		listings:    map[int64]*models.Listing{},
		nextListing: 1,
		buyers:      map[int64][]string{},
		ratings:     map[int64]map[string]int{},
	}
}

var errMemNotFound = errors.New("not found")

// --- Users ---

type memUsers struct{ s *memStore }

func (m *memUsers) Create(_ context.Context, username, email, hash, role string) (models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u := models.User{
		ID: uuid.NewString(), Username: username, Email: email,
		PasswordHash: hash, Role: role, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.s.users[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return models.User{}, errMemNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, errMemNotFound
}

func (m *memUsers) GetByRole(_ context.Context, role string) (models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Role == role {
			return u, nil
		}
	}
	return models.User{}, errMemNotFound
}

func (m *memUsers) List(_ context.Context) ([]models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]models.User, 0, len(m.s.users))
	for _, u := range m.s.users {
		out = append(out, u)
	}
	return out, nil
}

// --- Accounts ---

type memAccounts struct{ s *memStore }

func (m *memAccounts) balance(userID string) *models.Amount {
	if b, ok := m.s.accounts[userID]; ok {
		return b
	}
	b := models.NewAmount(0)
	m.s.accounts[userID] = b
	return b
}

func (m *memAccounts) GetOrCreate(_ context.Context, userID string) (models.Account, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return models.Account{UserID: userID, Amount: m.balance(userID).Clone(), LastUpdatedAt: time.Now()}, nil
}

func (m *memAccounts) Get(ctx context.Context, userID string) (models.Account, error) {
	return m.GetOrCreate(ctx, userID)
}

func (m *memAccounts) GetTx(ctx context.Context, _ pgx.Tx, userID string) (models.Account, error) {
	return m.GetOrCreate(ctx, userID)
}

func (m *memAccounts) Sum(_ context.Context) (*models.Amount, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sum := models.NewAmount(0)
	for _, b := range m.s.accounts {
		sum.Add(&sum.Int, &b.Int)
	}
	return sum, nil
}

func (m *memAccounts) TotalSupply(_ context.Context) (*models.Amount, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.supply.Clone(), nil
}

func (m *memAccounts) CreditTx(_ context.Context, _ pgx.Tx, userID string, amount *models.Amount) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b := m.balance(userID)
	b.Add(&b.Int, &amount.Int)
	return nil
}

func (m *memAccounts) DebitTx(_ context.Context, _ pgx.Tx, userID string, amount *models.Amount) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	b := m.balance(userID)
	if b.Lt(&amount.Int) {
		return ledger.ErrInsufficientBalance
	}
	b.Sub(&b.Int, &amount.Int)
	return nil
}

func (m *memAccounts) AddSupplyTx(_ context.Context, _ pgx.Tx, amount *models.Amount) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.supply.Add(&m.s.supply.Int, &amount.Int)
	return nil
}

func (m *memAccounts) SubSupplyTx(_ context.Context, _ pgx.Tx, amount *models.Amount) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.supply.Lt(&amount.Int) {
		return ledger.ErrInsufficientBalance
	}
	m.s.supply.Sub(&m.s.supply.Int, &amount.Int)
	return nil
}

// --- Allowances ---

type memAllowances struct{ s *memStore }

func (m *memAllowances) Get(_ context.Context, ownerID, spenderID string) (*models.Amount, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a, ok := m.s.allow[ownerID+"|"+spenderID]; ok {
		return a.Clone(), nil
	}
	return models.NewAmount(0), nil
}

func (m *memAllowances) SetTx(_ context.Context, _ pgx.Tx, ownerID, spenderID string, amount *models.Amount) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.allow[ownerID+"|"+spenderID] = amount.Clone()
	return nil
}

func (m *memAllowances) SpendTx(_ context.Context, _ pgx.Tx, ownerID, spenderID string, amount *models.Amount) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.allow[ownerID+"|"+spenderID]
	if !ok || a.Lt(&amount.Int) {
		return ledger.ErrInsufficientAllowance
	}
	a.Sub(&a.Int, &amount.Int)
	return nil
}

// --- Transfers ---

type memTransfers struct{ s *memStore }

func (m *memTransfers) CreateTx(_ context.Context, _ pgx.Tx, t models.Transfer) (models.Transfer, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now()
	m.s.transfers = append(m.s.transfers, t)
	return t, nil
}

func (m *memTransfers) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Transfer, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []models.Transfer
	for i := len(m.s.transfers) - 1; i >= 0; i-- {
		t := m.s.transfers[i]
		if (t.FromUserID != nil && *t.FromUserID == userID) || (t.ToUserID != nil && *t.ToUserID == userID) {
			out = append(out, t)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTransfers) LastTransaction(_ context.Context) (models.LastTransaction, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.last.Amount == nil {
		return models.LastTransaction{Amount: models.NewAmount(0)}, nil
	}
	return m.s.last, nil
}

func (m *memTransfers) SetLastTransactionTx(_ context.Context, _ pgx.Tx, l models.LastTransaction) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.last = l
	return nil
}

func (m *memTransfers) WithTx(_ context.Context, fn func(pgx.Tx) error) error {
	return fn(nil)
}

// --- Listings ---

type memListings struct{ s *memStore }

func (m *memListings) CreateTx(_ context.Context, _ pgx.Tx, l models.Listing) (models.Listing, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	l.ID = m.s.nextListing
	m.s.nextListing++
	l.CreatedAt = time.Now()
	cp := l
	m.s.listings[l.ID] = &cp
	return l, nil
}

func (m *memListings) get(id int64) (*models.Listing, error) {
	l, ok := m.s.listings[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return l, nil
}

func (m *memListings) Get(_ context.Context, id int64) (models.Listing, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	l, err := m.get(id)
	if err != nil {
		return models.Listing{}, err
	}
	return *l, nil
}

func (m *memListings) GetTx(ctx context.Context, _ pgx.Tx, id int64) (models.Listing, error) {
	return m.Get(ctx, id)
}

func (m *memListings) List(_ context.Context, limit, offset int) ([]models.Listing, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []models.Listing
	for id := int64(1); id < m.s.nextListing; id++ {
		if l, ok := m.s.listings[id]; ok {
			out = append(out, *l)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memListings) Count(_ context.Context) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return int64(len(m.s.listings)), nil
}

func (m *memListings) Buyers(_ context.Context, id int64) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.buyers[id], nil
}

func (m *memListings) MarkSoldTx(_ context.Context, _ pgx.Tx, id int64, buyerID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	l, err := m.get(id)
	if err != nil {
		return err
	}
	if l.Sold {
		return ledger.ErrAlreadySold
	}
	l.Sold = true
	m.s.buyers[id] = append(m.s.buyers[id], buyerID)
	return nil
}

func (m *memListings) AddRatingTx(_ context.Context, _ pgx.Tx, id int64, raterID string, rating int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	l, err := m.get(id)
	if err != nil {
		return err
	}
	if _, ok := m.s.ratings[id][raterID]; ok {
		return ledger.ErrAlreadyRated
	}
	if m.s.ratings[id] == nil {
		m.s.ratings[id] = map[string]int{}
	}
	m.s.ratings[id][raterID] = rating
	l.RatingTotal += int64(rating)
	l.RatingCount++
	return nil
}

func (m *memListings) DeleteTx(_ context.Context, _ pgx.Tx, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.listings, id)
	return nil
}

// --- AuditLogs ---

type memAudit struct{ s *memStore }

func (m *memAudit) Create(_ context.Context, l models.AuditLog) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now()
	m.s.audits = append(m.s.audits, l)
	return nil
}

func (m *memAudit) ListRecent(_ context.Context, limit int) ([]models.AuditLog, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []models.AuditLog
	for i := len(m.s.audits) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.s.audits[i])
	}
	return out, nil
}
