// Package memory is a process-local ledger store. Transactions hold
// exclusive per-wallet locks until they end, stage their writes, and apply
// them atomically on Commit.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("memory: transaction does not belong to this store")

// Store holds committed state. It implements ports.DBTransactor.
type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*domain.User
	wallets  map[uuid.UUID]*domain.Wallet
	byOwner  map[uuid.UUID]uuid.UUID
	records  map[uuid.UUID][]*domain.Transaction // by wallet
	locksMu  sync.Mutex
	locks    map[uuid.UUID]chan struct{}
	lockWait time.Duration
}

// NewStore creates an empty store. A positive lockWait bounds how long a
// transaction waits for a wallet lock before failing with ErrStoreConflict.
func NewStore(lockWait time.Duration) *Store {
	return &Store{
		users:    make(map[uuid.UUID]*domain.User),
		wallets:  make(map[uuid.UUID]*domain.Wallet),
		byOwner:  make(map[uuid.UUID]uuid.UUID),
		records:  make(map[uuid.UUID][]*domain.Transaction),
		locks:    make(map[uuid.UUID]chan struct{}),
		lockWait: lockWait,
	}
}

// Begin starts a new transaction.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return newTx(s), nil
}

// Users returns the identity repository view of the store.
func (s *Store) Users() *UserRepo { return &UserRepo{store: s} }

// Wallets returns the wallet repository view of the store.
func (s *Store) Wallets() *WalletRepo { return &WalletRepo{store: s} }

// Transactions returns the ledger record repository view of the store.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{store: s} }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) semaphore(id uuid.UUID) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	sem, ok := s.locks[id]
	if !ok {
		sem = make(chan struct{}, 1)
		s.locks[id] = sem
	}
	return sem
}

// acquire blocks until the wallet lock is free, ctx is done or the lock wait expires.
func (s *Store) acquire(ctx context.Context, id uuid.UUID) error {
	sem := s.semaphore(id)

	var expired <-chan time.Time
	if s.lockWait > 0 {
		timer := time.NewTimer(s.lockWait)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lock wallet %s: %w: %w", id, ports.ErrStoreConflict, ctx.Err())
	case <-expired:
		return fmt.Errorf("lock wallet %s: %w: lock wait exceeded %s", id, ports.ErrStoreConflict, s.lockWait)
	}
}

func (s *Store) release(id uuid.UUID) {
	<-s.semaphore(id)
}

// apply commits the staged state of t. All checks run before the first
// mutation so a failed commit leaves the store untouched.
func (s *Store) apply(t *Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := func(ownerID uuid.UUID) bool {
		u, ok := s.users[ownerID]
		return t.deleteNonSystem && ok && !u.IsSystem
	}

	for _, w := range t.walletWrites {
		if w.Balance.IsNegative() {
			return fmt.Errorf("commit: wallet %s: balance must not be negative", w.ID)
		}
	}
	for _, u := range t.newUsers {
		for id, existing := range s.users {
			if deleted(id) {
				continue
			}
			if existing.Username == u.Username {
				return fmt.Errorf("commit: %w", ports.ErrUsernameTaken)
			}
			if existing.Email == u.Email {
				return fmt.Errorf("commit: %w", ports.ErrEmailTaken)
			}
		}
	}
	for _, w := range t.newWallets {
		if _, ok := s.byOwner[w.OwnerID]; ok && !deleted(w.OwnerID) {
			return fmt.Errorf("commit: %w", ports.ErrWalletExists)
		}
	}
	for _, r := range t.records {
		if _, ok := t.walletWrites[r.WalletID]; ok {
			continue
		}
		w, ok := s.wallets[r.WalletID]
		if !ok || deleted(w.OwnerID) {
			return fmt.Errorf("commit: record %s references missing wallet %s", r.ID, r.WalletID)
		}
	}

	if t.deleteNonSystem {
		for id, u := range s.users {
			if u.IsSystem {
				continue
			}
			if walletID, ok := s.byOwner[id]; ok {
				delete(s.wallets, walletID)
				delete(s.records, walletID)
				delete(s.byOwner, id)
			}
			delete(s.users, id)
		}
	}
	for _, u := range t.newUsers {
		s.users[u.ID] = u
	}
	for _, w := range t.newWallets {
		s.byOwner[w.OwnerID] = w.ID
	}
	for id, w := range t.walletWrites {
		s.wallets[id] = w
	}
	for _, r := range t.records {
		s.records[r.WalletID] = append(s.records[r.WalletID], r)
	}
	return nil
}

func (s *Store) committedWallet(id uuid.UUID) *domain.Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return nil
	}
	return copyWallet(w)
}

func (s *Store) committedWalletIDByOwner(ownerID uuid.UUID) (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOwner[ownerID]
	return id, ok
}

func (s *Store) nonSystemWalletIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []uuid.UUID
	for ownerID, walletID := range s.byOwner {
		if u, ok := s.users[ownerID]; ok && !u.IsSystem {
			ids = append(ids, walletID)
		}
	}
	sortIDs(ids)
	return ids
}

func copyWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	if w.RevealDate != nil {
		d := *w.RevealDate
		c.RevealDate = &d
	}
	return &c
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return lessID(ids[i], ids[j])
	})
}

func lessID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
