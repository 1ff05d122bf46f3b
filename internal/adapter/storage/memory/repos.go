package memory

import (
	"context"
	"fmt"
	"sort"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	store *Store
}

func (r *UserRepo) Create(ctx context.Context, tx pgx.Tx, u *domain.User) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	for _, staged := range t.newUsers {
		if staged.Username == u.Username {
			return fmt.Errorf("insert user: %w", ports.ErrUsernameTaken)
		}
		if staged.Email == u.Email {
			return fmt.Errorf("insert user: %w", ports.ErrEmailTaken)
		}
	}

	r.store.mu.RLock()
	for _, existing := range r.store.users {
		if t.deleteNonSystem && !existing.IsSystem {
			continue
		}
		if existing.Username == u.Username {
			r.store.mu.RUnlock()
			return fmt.Errorf("insert user: %w", ports.ErrUsernameTaken)
		}
		if existing.Email == u.Email {
			r.store.mu.RUnlock()
			return fmt.Errorf("insert user: %w", ports.ErrEmailTaken)
		}
	}
	r.store.mu.RUnlock()

	t.newUsers = append(t.newUsers, copyUser(u))
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, u := range r.store.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

// DeleteNonSystem locks every non-system wallet and stages their removal.
func (r *UserRepo) DeleteNonSystem(ctx context.Context, tx pgx.Tx) (int64, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return 0, err
	}
	for _, id := range r.store.nonSystemWalletIDs() {
		if err := t.lock(ctx, id); err != nil {
			return 0, err
		}
	}
	t.deleteNonSystem = true

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var n int64
	for _, u := range r.store.users {
		if !u.IsSystem {
			n++
		}
	}
	return n, nil
}

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	store *Store
}

func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	if _, ok := t.walletIDByOwner(w.OwnerID); ok && !t.deleteNonSystem {
		return fmt.Errorf("insert wallet: %w", ports.ErrWalletExists)
	}
	if err := t.lock(ctx, w.ID); err != nil {
		return err
	}
	c := copyWallet(w)
	t.newWallets = append(t.newWallets, c)
	t.walletWrites[c.ID] = c
	return nil
}

func (r *WalletRepo) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	id, ok := r.store.committedWalletIDByOwner(ownerID)
	if !ok {
		return nil, nil
	}
	return r.store.committedWallet(id), nil
}

func (r *WalletRepo) GetByOwnerIDForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*domain.Wallet, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return nil, err
	}
	id, ok := t.walletIDByOwner(ownerID)
	if !ok {
		return nil, nil
	}
	return r.lockAndRead(ctx, t, id)
}

func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return nil, err
	}
	return r.lockAndRead(ctx, t, id)
}

func (r *WalletRepo) lockAndRead(ctx context.Context, t *Tx, id uuid.UUID) (*domain.Wallet, error) {
	if err := t.lock(ctx, id); err != nil {
		return nil, err
	}
	// Re-read after the lock: another transaction may have committed while we waited.
	return t.wallet(id), nil
}

// Save stages the wallet state. The wallet must be locked by tx.
func (r *WalletRepo) Save(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	if _, ok := t.held[w.ID]; !ok {
		return fmt.Errorf("save wallet %s: not locked by this transaction", w.ID)
	}
	if t.wallet(w.ID) == nil {
		return fmt.Errorf("wallet not found: %s", w.ID)
	}
	t.walletWrites[w.ID] = copyWallet(w)
	return nil
}

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	store *Store
}

func (r *TransactionRepo) Append(ctx context.Context, tx pgx.Tx, rec *domain.Transaction) error {
	_, err := r.AppendBatch(ctx, tx, []*domain.Transaction{rec})
	return err
}

func (r *TransactionRepo) AppendBatch(ctx context.Context, tx pgx.Tx, records []*domain.Transaction) (int64, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return 0, err
	}
	for _, rec := range records {
		if t.wallet(rec.WalletID) == nil {
			return 0, fmt.Errorf("insert transaction: wallet %s does not exist", rec.WalletID)
		}
	}
	for _, rec := range records {
		c := *rec
		t.records = append(t.records, &c)
	}
	return int64(len(records)), nil
}

func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.store.mu.RLock()
	var matched []domain.Transaction
	for _, rec := range r.store.records[params.WalletID] {
		if params.Kind != nil && rec.Kind != *params.Kind {
			continue
		}
		if params.From != nil && rec.CreatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && !rec.CreatedAt.Before(*params.To) {
			continue
		}
		matched = append(matched, *rec)
	}
	r.store.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return lessID(matched[j].ID, matched[i].ID)
	})

	total := int64(len(matched))
	start := params.Offset()
	if start >= len(matched) {
		return []domain.Transaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *TransactionRepo) SumByWallet(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	sum := decimal.Zero
	for _, rec := range r.store.records[walletID] {
		sum = sum.Add(rec.Amount)
	}
	return sum, nil
}
