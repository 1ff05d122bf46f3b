package service

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// QueryServiceImpl implements ports.QueryService.
type QueryServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	loc        *time.Location
}

// NewQueryService creates a new QueryServiceImpl. Listing dates are read as
// calendar days in loc.
func NewQueryService(walletRepo ports.WalletRepository, txRepo ports.TransactionRepository, loc *time.Location) *QueryServiceImpl {
	if loc == nil {
		loc = time.UTC
	}
	return &QueryServiceImpl{walletRepo: walletRepo, txRepo: txRepo, loc: loc}
}

// GetWallet returns the caller's wallet without locking it.
func (s *QueryServiceImpl) GetWallet(ctx context.Context, id domain.Identity) (*domain.Snapshot, error) {
	wallet, err := s.walletRepo.GetByOwnerID(ctx, id.UserID)
	if err != nil {
		return nil, storeError("get wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	snap := domain.SnapshotOf(wallet, id.Username)
	return &snap, nil
}

// ListTransactions returns one page of the caller's history, newest first,
// and the total number of matching records.
func (s *QueryServiceImpl) ListTransactions(ctx context.Context, id domain.Identity, filter ports.TransactionFilter) ([]domain.Transaction, int64, error) {
	if filter.Kind != nil && !filter.Kind.Valid() {
		return nil, 0, apperror.Validation("transaction_type must be one of deposit, withdraw, transfer")
	}

	params := ports.TransactionListParams{
		Kind:     filter.Kind,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	if filter.StartDate != nil {
		from := s.calendarDay(*filter.StartDate)
		params.From = &from
	}
	if filter.EndDate != nil {
		to := s.calendarDay(*filter.EndDate).AddDate(0, 0, 1)
		params.To = &to
	}
	if params.From != nil && params.To != nil && !params.From.Before(*params.To) {
		return nil, 0, apperror.Validation("start_date must not be after end_date")
	}

	wallet, err := s.walletRepo.GetByOwnerID(ctx, id.UserID)
	if err != nil {
		return nil, 0, storeError("get wallet", err)
	}
	if wallet == nil {
		return nil, 0, apperror.ErrNotFound("wallet")
	}
	params.WalletID = wallet.ID

	items, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, storeError("list transactions", err)
	}
	if items == nil {
		items = []domain.Transaction{}
	}
	return items, total, nil
}

// calendarDay keeps the date fields of d as given and anchors them at
// midnight in the listing location.
func (s *QueryServiceImpl) calendarDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, s.loc)
}
