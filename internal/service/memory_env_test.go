package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"wallet-ledger/internal/adapter/storage/memory"
	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock is a settable clock shared by the services of one env.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// ledgerEnv wires the services to one in-memory store.
type ledgerEnv struct {
	store   *memory.Store
	clock   *testClock
	policy  LedgerPolicy
	ledger  *LedgerServiceImpl
	bonus   *BonusServiceImpl
	query   *QueryServiceImpl
	wallets map[string]uuid.UUID // username -> wallet id
}

func newLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()
	store := memory.NewStore(5 * time.Second)
	clock := &testClock{now: testNow}
	policy := DefaultPolicy()

	env := &ledgerEnv{
		store:   store,
		clock:   clock,
		policy:  policy,
		wallets: make(map[string]uuid.UUID),
	}
	env.ledger = NewLedgerService(store.Users(), store.Wallets(), store.Transactions(), store, policy, clock.Now, nopLogger())
	env.bonus = NewBonusService(store.Users(), store.Wallets(), store.Transactions(), store, policy, clock.Now, nopLogger())
	env.query = NewQueryService(store.Wallets(), store.Transactions(), policy.Location)
	return env
}

// openWallet commits an identity whose wallet is funded by one deposit record.
func (e *ledgerEnv) openWallet(t *testing.T, username, balance string) domain.Identity {
	t.Helper()
	return e.open(t, username, balance, false)
}

// openSystemWallet commits the system identity with a funded wallet.
func (e *ledgerEnv) openSystemWallet(t *testing.T, balance string) domain.Identity {
	t.Helper()
	return e.open(t, e.policy.SystemIdentity, balance, true)
}

func (e *ledgerEnv) open(t *testing.T, username, balance string, system bool) domain.Identity {
	t.Helper()
	ctx := context.Background()
	// Opened an hour earlier so funding sorts below the records under test.
	now := e.clock.Now().Add(-time.Hour)

	u := &domain.User{ID: uuid.New(), Username: username, Email: username + "@test.com", IsSystem: system, CreatedAt: now}
	w := domain.NewWallet(u.ID, e.policy.Currency, now)
	w.Balance = dec(balance)

	tx, err := e.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, e.store.Users().Create(ctx, tx, u))
	require.NoError(t, e.store.Wallets().Create(ctx, tx, w))
	if w.Balance.IsPositive() {
		rec := domain.NewRecord(w.ID, domain.KindDeposit, w.Balance, domain.CounterpartyInitialFunding, now)
		require.NoError(t, e.store.Transactions().Append(ctx, tx, rec))
	}
	require.NoError(t, tx.Commit(ctx))

	e.wallets[username] = w.ID
	return u.Identity()
}

func (e *ledgerEnv) balance(t *testing.T, id domain.Identity) decimal.Decimal {
	t.Helper()
	w, err := e.store.Wallets().GetByOwnerID(context.Background(), id.UserID)
	require.NoError(t, err)
	require.NotNil(t, w)
	return w.Balance
}

// assertReconciled checks that every wallet's balance equals the sum of its
// records and is not negative, and returns the total held.
func (e *ledgerEnv) assertReconciled(t *testing.T) decimal.Decimal {
	t.Helper()
	ctx := context.Background()
	total := decimal.Zero
	for name, walletID := range e.wallets {
		u, err := e.store.Users().GetByUsername(ctx, name)
		require.NoError(t, err)
		require.NotNil(t, u, name)
		w, err := e.store.Wallets().GetByOwnerID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, walletID, w.ID)

		sum, err := e.store.Transactions().SumByWallet(ctx, walletID)
		require.NoError(t, err)
		assert.True(t, sum.Equal(w.Balance), "%s: balance %s, records %s", name, w.Balance, sum)
		assert.False(t, w.Balance.IsNegative(), "%s: negative balance", name)
		total = total.Add(w.Balance)
	}
	return total
}
