package memory

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errUnsupported = errors.New("memory: SQL is not supported by the in-memory store")

// Tx is a unit of work against a Store. It satisfies pgx.Tx so the services
// can run unchanged on either backend; the SQL methods are not supported.
type Tx struct {
	store *Store
	done  bool

	held            map[uuid.UUID]struct{}
	newUsers        []*domain.User
	newWallets      []*domain.Wallet
	walletWrites    map[uuid.UUID]*domain.Wallet
	records         []*domain.Transaction
	deleteNonSystem bool
}

func newTx(s *Store) *Tx {
	return &Tx{
		store:        s,
		held:         make(map[uuid.UUID]struct{}),
		walletWrites: make(map[uuid.UUID]*domain.Wallet),
	}
}

func (t *Tx) check(s *Store) error {
	if t.store != s {
		return errForeignTx
	}
	if t.done {
		return pgx.ErrTxClosed
	}
	return nil
}

// lock takes the wallet lock once per transaction.
func (t *Tx) lock(ctx context.Context, walletID uuid.UUID) error {
	if _, ok := t.held[walletID]; ok {
		return nil
	}
	if err := t.store.acquire(ctx, walletID); err != nil {
		return err
	}
	t.held[walletID] = struct{}{}
	return nil
}

// wallet returns this transaction's view of a wallet: its own staged write
// if any, otherwise the committed row.
func (t *Tx) wallet(id uuid.UUID) *domain.Wallet {
	if w, ok := t.walletWrites[id]; ok {
		return copyWallet(w)
	}
	return t.store.committedWallet(id)
}

func (t *Tx) walletIDByOwner(ownerID uuid.UUID) (uuid.UUID, bool) {
	for _, w := range t.newWallets {
		if w.OwnerID == ownerID {
			return w.ID, true
		}
	}
	return t.store.committedWalletIDByOwner(ownerID)
}

func (t *Tx) finish() {
	t.done = true
	for id := range t.held {
		t.store.release(id)
	}
	t.held = nil
}

// Commit applies staged writes atomically and releases all wallet locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	defer t.finish()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return t.store.apply(t)
}

// Rollback discards staged writes and releases all wallet locks.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.finish()
	return nil
}

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, errUnsupported }

func (t *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errUnsupported
}

func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *Tx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errUnsupported
}

func (t *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errUnsupported
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errUnsupported
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return errRow{}
}

func (t *Tx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(dest ...any) error { return errUnsupported }

func asTx(s *Store, tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, errForeignTx
	}
	if err := t.check(s); err != nil {
		return nil, err
	}
	return t, nil
}
