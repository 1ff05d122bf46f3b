package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

// Schema is the idempotent DDL for the ledger tables.
//
//go:embed schema.sql
var Schema string

// Migrate applies Schema.
func Migrate(ctx context.Context, pool Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
