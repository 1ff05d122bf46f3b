package storage

import (
	"context"
	"testing"

	"wallet-ledger/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "memory"}}

	backend, err := Open(context.Background(), cfg, true, zerolog.Nop())
	require.NoError(t, err)
	defer backend.Close()

	assert.Equal(t, "memory", backend.Driver)
	assert.Equal(t, "memory", backend.Health.Name())
	assert.NoError(t, backend.Health.Ping(context.Background()))

	tx, err := backend.Transactor.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(context.Background()))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "sqlite"}}

	_, err := Open(context.Background(), cfg, false, zerolog.Nop())
	assert.ErrorContains(t, err, `unsupported storage driver "sqlite"`)
}
