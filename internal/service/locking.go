package service

import (
	"bytes"
	"context"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// lockWalletPair locks two distinct wallets in ascending id order and returns
// them in argument order. Every unit touching more than one wallet goes
// through here so no two units can wait on each other in a cycle.
func lockWalletPair(ctx context.Context, repo ports.WalletRepository, tx pgx.Tx, a, b uuid.UUID) (*domain.Wallet, *domain.Wallet, error) {
	first, second := a, b
	if bytes.Compare(b[:], a[:]) < 0 {
		first, second = b, a
	}

	w1, err := repo.GetByIDForUpdate(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	w2, err := repo.GetByIDForUpdate(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}

	if first == a {
		return w1, w2, nil
	}
	return w2, w1, nil
}
