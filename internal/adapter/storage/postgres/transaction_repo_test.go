package postgres

import (
	"context"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord(walletID uuid.UUID, kind domain.TransactionKind, amount string) *domain.Transaction {
	return domain.NewRecord(walletID, kind, decimal.RequireFromString(amount), "", time.Now().UTC().Truncate(time.Microsecond))
}

func txRows(records ...*domain.Transaction) *pgxmock.Rows {
	rows := pgxmock.NewRows(transactionColumns)
	for _, t := range records {
		rows.AddRow(t.ID, t.WalletID, t.Kind, t.Amount, t.Counterparty, t.Status, t.CreatedAt)
	}
	return rows
}

func TestTransactionRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	rec := newTestRecord(uuid.New(), domain.KindWithdraw, "-25.00")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(rec.ID, rec.WalletID, rec.Kind, rec.Amount, rec.Counterparty, rec.Status, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	assert.NoError(t, repo.Append(context.Background(), tx, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_AppendBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	records := []*domain.Transaction{
		newTestRecord(walletID, domain.KindDeposit, "100.00"),
		newTestRecord(walletID, domain.KindWithdraw, "-30.50"),
	}

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"transactions"}, transactionColumns).
		WillReturnResult(2)

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	n, err := repo.AppendBatch(context.Background(), tx, records)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_AppendBatch_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	n, err := repo.AppendBatch(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTransactionRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	newer := newTestRecord(walletID, domain.KindDeposit, "10.00")
	older := newTestRecord(walletID, domain.KindDeposit, "20.00")
	older.CreatedAt = newer.CreatedAt.Add(-time.Hour)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE wallet_id = .+ ORDER BY created_at DESC").
		WithArgs(walletID, 10, 10).
		WillReturnRows(txRows(newer, older))

	txns, total, err := repo.List(context.Background(), ports.TransactionListParams{
		WalletID: walletID,
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, txns, 2)
	assert.Equal(t, newer.ID, txns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List_WithFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	kind := domain.KindTransfer
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT.+wallet_id = .+transaction_type = .+created_at >= .+created_at <").
		WithArgs(walletID, kind, from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery("SELECT .+ FROM transactions").
		WithArgs(walletID, kind, from, to, 10, 0).
		WillReturnRows(txRows())

	txns, total, err := repo.List(context.Background(), ports.TransactionListParams{
		WalletID: walletID,
		Kind:     &kind,
		From:     &from,
		To:       &to,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, txns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_SumByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM transactions").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(decimal.RequireFromString("75.50")))

	sum, err := repo.SumByWallet(context.Background(), walletID)
	require.NoError(t, err)
	assert.Equal(t, "75.50", sum.StringFixed(2))
}

func TestNumeric(t *testing.T) {
	n := numeric(decimal.RequireFromString("-30.50"))
	assert.True(t, n.Valid)
	assert.Equal(t, int32(-2), n.Exp)
	assert.Equal(t, int64(-3050), n.Int.Int64())
}
