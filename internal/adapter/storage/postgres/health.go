package postgres

import (
	"context"
	"errors"
	"fmt"
)

// ledgerTables must exist for the store to serve requests.
var ledgerTables = []string{"users", "wallets", "transactions"}

// HealthCheck implements ports.HealthChecker for PostgreSQL. Besides
// connectivity it reports a database that was never migrated.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck creates a PostgreSQL health checker.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping counts the ledger tables visible on the search path.
func (h *HealthCheck) Ping(ctx context.Context) error {
	var found int
	err := h.pool.QueryRow(ctx,
		`SELECT count(*) FROM unnest($1::text[]) AS t(name) WHERE to_regclass(t.name) IS NOT NULL`,
		ledgerTables,
	).Scan(&found)
	if err != nil {
		return fmt.Errorf("checking ledger schema: %w", err)
	}
	if found != len(ledgerTables) {
		return errors.New("ledger schema missing, start with --migrate")
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "postgresql"
}
