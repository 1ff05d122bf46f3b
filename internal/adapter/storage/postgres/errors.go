package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the store reacts to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014" // raised by statement_timeout
	codeUniqueViolation      = "23505"
)

var uniqueConstraints = map[string]error{
	"users_username_key":   ports.ErrUsernameTaken,
	"users_email_key":      ports.ErrEmailTaken,
	"wallets_owner_id_key": ports.ErrWalletExists,
}

// classify wraps err with op and maps lock and uniqueness failures onto the
// store sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
			return fmt.Errorf("%s: %w: %w", op, ports.ErrStoreConflict, err)
		case codeUniqueViolation:
			if sentinel, ok := uniqueConstraints[pgErr.ConstraintName]; ok {
				return fmt.Errorf("%s: %w", op, sentinel)
			}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ports.ErrStoreConflict, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
