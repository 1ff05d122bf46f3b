package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedUser commits a user with a funded wallet.
func seedUser(t *testing.T, s *Store, username string, balance string) (*domain.User, *domain.Wallet) {
	t.Helper()
	ctx := context.Background()

	u := &domain.User{ID: uuid.New(), Username: username, Email: username + "@test.com", CreatedAt: time.Now()}
	w := domain.NewWallet(u.ID, "EGP", time.Now())
	w.Balance = dec(balance)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Users().Create(ctx, tx, u))
	require.NoError(t, s.Wallets().Create(ctx, tx, w))
	if w.Balance.IsPositive() {
		require.NoError(t, s.Transactions().Append(ctx, tx, domain.NewRecord(w.ID, domain.KindDeposit, w.Balance, "", time.Now())))
	}
	require.NoError(t, tx.Commit(ctx))
	return u, w
}

func TestStore_CommitMakesWritesVisible(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()
	u, w := seedUser(t, s, "alice", "100")

	got, err := s.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	wallet, err := s.Wallets().GetByOwnerID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, wallet)
	assert.Equal(t, w.ID, wallet.ID)
	assert.True(t, wallet.Balance.Equal(dec("100")))

	sum, err := s.Transactions().SumByWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("100")))
}

func TestStore_RollbackDiscardsWrites(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()
	u, w := seedUser(t, s, "alice", "100")

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	locked, err := s.Wallets().GetByOwnerIDForUpdate(ctx, tx, u.ID)
	require.NoError(t, err)
	locked.Debit(dec("40"))
	require.NoError(t, s.Wallets().Save(ctx, tx, locked))
	require.NoError(t, s.Transactions().Append(ctx, tx, domain.NewRecord(w.ID, domain.KindWithdraw, dec("-40"), "", time.Now())))

	// Own writes are visible inside the transaction.
	again, err := s.Wallets().GetByIDForUpdate(ctx, tx, w.ID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(dec("60")))

	require.NoError(t, tx.Rollback(ctx))

	wallet, _ := s.Wallets().GetByOwnerID(ctx, u.ID)
	assert.True(t, wallet.Balance.Equal(dec("100")))
	sum, _ := s.Transactions().SumByWallet(ctx, w.ID)
	assert.True(t, sum.Equal(dec("100")))

	assert.ErrorIs(t, tx.Commit(ctx), pgx.ErrTxClosed)
	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)
}

func TestStore_ReturnedWalletIsACopy(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()
	u, _ := seedUser(t, s, "alice", "100")

	w, err := s.Wallets().GetByOwnerID(ctx, u.ID)
	require.NoError(t, err)
	w.Balance = dec("0")

	again, _ := s.Wallets().GetByOwnerID(ctx, u.ID)
	assert.True(t, again.Balance.Equal(dec("100")))
}

func TestStore_LockBlocksUntilRelease(t *testing.T) {
	s := NewStore(5 * time.Second)
	ctx := context.Background()
	u, _ := seedUser(t, s, "alice", "100")

	first, err := s.Begin(ctx)
	require.NoError(t, err)
	w1, err := s.Wallets().GetByOwnerIDForUpdate(ctx, first, u.ID)
	require.NoError(t, err)

	acquired := make(chan *domain.Wallet)
	go func() {
		second, _ := s.Begin(ctx)
		defer second.Rollback(ctx) //nolint:errcheck
		w2, err := s.Wallets().GetByOwnerIDForUpdate(ctx, second, u.ID)
		if err != nil {
			acquired <- nil
			return
		}
		acquired <- w2
	}()

	select {
	case <-acquired:
		t.Fatal("second transaction acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	w1.Credit(dec("5"))
	require.NoError(t, s.Wallets().Save(ctx, first, w1))
	require.NoError(t, first.Commit(ctx))

	select {
	case w2 := <-acquired:
		require.NotNil(t, w2)
		assert.True(t, w2.Balance.Equal(dec("105")), "waiter must observe the committed balance")
	case <-time.After(2 * time.Second):
		t.Fatal("lock was not released on commit")
	}
}

func TestStore_LockTimeout(t *testing.T) {
	s := NewStore(20 * time.Millisecond)
	ctx := context.Background()
	u, _ := seedUser(t, s, "alice", "100")

	holder, _ := s.Begin(ctx)
	defer holder.Rollback(ctx) //nolint:errcheck
	_, err := s.Wallets().GetByOwnerIDForUpdate(ctx, holder, u.ID)
	require.NoError(t, err)

	waiter, _ := s.Begin(ctx)
	defer waiter.Rollback(ctx) //nolint:errcheck
	_, err = s.Wallets().GetByOwnerIDForUpdate(ctx, waiter, u.ID)
	assert.True(t, errors.Is(err, ports.ErrStoreConflict))
}

func TestStore_LockHonoursContext(t *testing.T) {
	s := NewStore(0)
	u, _ := seedUser(t, s, "alice", "100")

	holder, _ := s.Begin(context.Background())
	defer holder.Rollback(context.Background()) //nolint:errcheck
	_, err := s.Wallets().GetByOwnerIDForUpdate(context.Background(), holder, u.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	waiter, _ := s.Begin(context.Background())
	defer waiter.Rollback(context.Background()) //nolint:errcheck
	_, err = s.Wallets().GetByOwnerIDForUpdate(ctx, waiter, u.ID)
	assert.True(t, errors.Is(err, ports.ErrStoreConflict))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestStore_SaveRequiresLock(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()
	u, _ := seedUser(t, s, "alice", "100")

	w, _ := s.Wallets().GetByOwnerID(ctx, u.ID)
	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck

	err := s.Wallets().Save(ctx, tx, w)
	assert.ErrorContains(t, err, "not locked")
}

func TestStore_NegativeBalanceRejectedOnCommit(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()
	u, _ := seedUser(t, s, "alice", "10")

	tx, _ := s.Begin(ctx)
	w, _ := s.Wallets().GetByOwnerIDForUpdate(ctx, tx, u.ID)
	w.Debit(dec("11"))
	require.NoError(t, s.Wallets().Save(ctx, tx, w))

	assert.Error(t, tx.Commit(ctx))
	after, _ := s.Wallets().GetByOwnerID(ctx, u.ID)
	assert.True(t, after.Balance.Equal(dec("10")))
}

func TestStore_UniqueConstraints(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()
	u, _ := seedUser(t, s, "alice", "0")

	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck

	err := s.Users().Create(ctx, tx, &domain.User{ID: uuid.New(), Username: "alice", Email: "other@test.com"})
	assert.ErrorIs(t, err, ports.ErrUsernameTaken)

	err = s.Users().Create(ctx, tx, &domain.User{ID: uuid.New(), Username: "other", Email: "alice@test.com"})
	assert.ErrorIs(t, err, ports.ErrEmailTaken)

	err = s.Wallets().Create(ctx, tx, domain.NewWallet(u.ID, "EGP", time.Now()))
	assert.ErrorIs(t, err, ports.ErrWalletExists)
}

func TestStore_ConcurrentRegistrationConflictsOnCommit(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()

	a, _ := s.Begin(ctx)
	b, _ := s.Begin(ctx)
	require.NoError(t, s.Users().Create(ctx, a, &domain.User{ID: uuid.New(), Username: "bob", Email: "b1@test.com"}))
	require.NoError(t, s.Users().Create(ctx, b, &domain.User{ID: uuid.New(), Username: "bob", Email: "b2@test.com"}))

	require.NoError(t, a.Commit(ctx))
	assert.ErrorIs(t, b.Commit(ctx), ports.ErrUsernameTaken)
}

func TestStore_AppendRequiresWallet(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()

	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck
	err := s.Transactions().Append(ctx, tx, domain.NewRecord(uuid.New(), domain.KindDeposit, dec("1"), "", time.Now()))
	assert.Error(t, err)
}

func TestStore_ListNewestFirstWithFilters(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()
	_, w := seedUser(t, s, "alice", "0")

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tx, _ := s.Begin(ctx)
	var batch []*domain.Transaction
	for i := 0; i < 15; i++ {
		kind := domain.KindDeposit
		amount := dec("10")
		if i%3 == 0 {
			kind = domain.KindWithdraw
			amount = dec("-1")
		}
		batch = append(batch, domain.NewRecord(w.ID, kind, amount, "", base.AddDate(0, 0, i)))
	}
	n, err := s.Transactions().AppendBatch(ctx, tx, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)
	require.NoError(t, tx.Commit(ctx))

	page1, total, err := s.Transactions().List(ctx, ports.TransactionListParams{WalletID: w.ID, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	require.Len(t, page1, 10)
	assert.True(t, page1[0].CreatedAt.After(page1[1].CreatedAt))
	assert.Equal(t, base.AddDate(0, 0, 14), page1[0].CreatedAt)

	page2, _, err := s.Transactions().List(ctx, ports.TransactionListParams{WalletID: w.ID, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, page2, 5)

	beyond, _, err := s.Transactions().List(ctx, ports.TransactionListParams{WalletID: w.ID, Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	kind := domain.KindWithdraw
	from := base.AddDate(0, 0, 3)
	to := base.AddDate(0, 0, 10)
	filtered, total, err := s.Transactions().List(ctx, ports.TransactionListParams{
		WalletID: w.ID, Kind: &kind, From: &from, To: &to, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total) // days 3, 6, 9
	for _, rec := range filtered {
		assert.Equal(t, domain.KindWithdraw, rec.Kind)
	}
}

func TestStore_DeleteNonSystem(t *testing.T) {
	s := NewStore(time.Second)
	ctx := context.Background()
	_, aliceWallet := seedUser(t, s, "alice", "50")

	bot := &domain.User{ID: uuid.New(), Username: "bot", Email: "bot@test.com", IsSystem: true}
	tx, _ := s.Begin(ctx)
	require.NoError(t, s.Users().Create(ctx, tx, bot))
	require.NoError(t, tx.Commit(ctx))

	tx, _ = s.Begin(ctx)
	n, err := s.Users().DeleteNonSystem(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Username becomes available again inside the same transaction.
	require.NoError(t, s.Users().Create(ctx, tx, &domain.User{ID: uuid.New(), Username: "alice", Email: "alice@test.com"}))
	require.NoError(t, tx.Commit(ctx))

	got, _ := s.Users().GetByUsername(ctx, "bot")
	assert.NotNil(t, got)
	sum, _ := s.Transactions().SumByWallet(ctx, aliceWallet.ID)
	assert.True(t, sum.IsZero())
	old, _ := s.Wallets().GetByOwnerID(ctx, aliceWallet.OwnerID)
	assert.Nil(t, old)
}

func TestStore_ForeignTransaction(t *testing.T) {
	a := NewStore(time.Second)
	b := NewStore(time.Second)
	ctx := context.Background()

	tx, _ := a.Begin(ctx)
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err := b.Wallets().GetByOwnerIDForUpdate(ctx, tx, uuid.New())
	assert.ErrorIs(t, err, errForeignTx)
}

func TestStore_HealthCheck(t *testing.T) {
	s := NewStore(0)
	assert.Equal(t, "memory", s.Name())
	assert.NoError(t, s.Ping(context.Background()))
}
