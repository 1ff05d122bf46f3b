// Package storage selects the ledger store backend named in the config.
package storage

import (
	"context"
	"fmt"

	"wallet-ledger/config"
	"wallet-ledger/internal/adapter/storage/memory"
	"wallet-ledger/internal/adapter/storage/postgres"
	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// Backend bundles the repositories and transactor of one store.
type Backend struct {
	Driver       string
	Users        ports.UserRepository
	Wallets      ports.WalletRepository
	Transactions ports.TransactionRepository
	Transactor   ports.DBTransactor
	Health       ports.HealthChecker
	Close        func()
}

// Open connects the configured driver. With migrate set, the PostgreSQL
// schema is applied before returning.
func Open(ctx context.Context, cfg *config.Config, migrate bool, log zerolog.Logger) (*Backend, error) {
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore(cfg.Database.LockTimeout)
		log.Warn().Msg("Using in-memory store, all data is lost on exit")
		return &Backend{
			Driver:       cfg.Storage.Driver,
			Users:        store.Users(),
			Wallets:      store.Wallets(),
			Transactions: store.Transactions(),
			Transactor:   store,
			Health:       store,
			Close:        func() {},
		}, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
			log.Info().Msg("Database schema applied")
		}
		return &Backend{
			Driver:       cfg.Storage.Driver,
			Users:        postgres.NewUserRepo(pool),
			Wallets:      postgres.NewWalletRepo(pool),
			Transactions: postgres.NewTransactionRepo(pool),
			Transactor:   postgres.NewTransactor(pool, cfg.Database.LockTimeout),
			Health:       postgres.NewHealthCheck(pool),
			Close:        pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
