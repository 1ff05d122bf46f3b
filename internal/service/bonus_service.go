package service

import (
	"context"
	"sync"
	"sync/atomic"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// BonusServiceImpl implements ports.BonusService.
type BonusServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	policy     LedgerPolicy
	now        Clock
	log        zerolog.Logger

	suspended atomic.Int32
}

// NewBonusService creates a new BonusServiceImpl.
func NewBonusService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	policy LedgerPolicy,
	clock Clock,
	log zerolog.Logger,
) *BonusServiceImpl {
	if clock == nil {
		clock = SystemClock
	}
	return &BonusServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		policy:     policy,
		now:        clock,
		log:        log,
	}
}

// ProvisionWallet creates the zero-balance wallet of user inside tx.
// The system identity is funded separately and never provisioned here.
func (s *BonusServiceImpl) ProvisionWallet(ctx context.Context, tx pgx.Tx, user *domain.User) (*domain.Wallet, error) {
	if user.IsSystem || user.Username == s.policy.SystemIdentity {
		return nil, apperror.ErrInvalidIdentity()
	}

	wallet := domain.NewWallet(user.ID, s.policy.Currency, s.now())
	if err := s.walletRepo.Create(ctx, tx, wallet); err != nil {
		return nil, storeError("create wallet", err)
	}
	return wallet, nil
}

// IssueBonus moves the configured bonus from the system wallet to the wallet
// of id as a transfer pair. It runs in its own unit, after the identity and
// wallet are committed, and reports rather than returns failures.
func (s *BonusServiceImpl) IssueBonus(ctx context.Context, id domain.Identity) ports.BonusOutcome {
	amount := s.policy.BonusAmount
	out := func(status ports.BonusStatus, err error) ports.BonusOutcome {
		o := ports.BonusOutcome{Status: status, Err: err}
		if status == ports.BonusIssued {
			o.Amount = amount
		}
		return o
	}

	if s.Suspended() {
		return out(ports.BonusSkippedSuspended, nil)
	}
	if id.Username == s.policy.SystemIdentity {
		return out(ports.BonusSkippedSystemIdentity, nil)
	}
	if !amount.IsPositive() {
		return out(ports.BonusSkippedInsufficientFunds, nil)
	}

	system, err := s.userRepo.GetByUsername(ctx, s.policy.SystemIdentity)
	if err != nil {
		return out(ports.BonusFailed, storeError("find system identity", err))
	}
	if system == nil {
		return out(ports.BonusSkippedNoSystemWallet, nil)
	}
	systemRef, err := s.walletRepo.GetByOwnerID(ctx, system.ID)
	if err != nil {
		return out(ports.BonusFailed, storeError("find system wallet", err))
	}
	if systemRef == nil {
		return out(ports.BonusSkippedNoSystemWallet, nil)
	}
	targetRef, err := s.walletRepo.GetByOwnerID(ctx, id.UserID)
	if err != nil {
		return out(ports.BonusFailed, storeError("find wallet", err))
	}
	if targetRef == nil {
		return out(ports.BonusFailed, apperror.ErrNotFound("wallet"))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return out(ports.BonusFailed, storeError("begin tx", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	source, target, err := lockWalletPair(ctx, s.walletRepo, dbTx, systemRef.ID, targetRef.ID)
	if err != nil {
		return out(ports.BonusFailed, storeError("lock wallets", err))
	}
	if source == nil {
		return out(ports.BonusSkippedNoSystemWallet, nil)
	}
	if target == nil {
		return out(ports.BonusFailed, apperror.ErrNotFound("wallet"))
	}
	if !source.CanDebit(amount) {
		s.log.Warn().
			Str("system_wallet_id", source.ID.String()).
			Str("balance", source.Balance.StringFixed(domain.MoneyScale)).
			Msg("system wallet cannot cover bonus")
		return out(ports.BonusSkippedInsufficientFunds, nil)
	}

	now := s.now()

	source.Debit(amount)
	if err := s.walletRepo.Save(ctx, dbTx, source); err != nil {
		return out(ports.BonusFailed, storeError("save system wallet", err))
	}
	if err := s.txRepo.Append(ctx, dbTx, domain.NewRecord(source.ID, domain.KindTransfer, amount.Neg(), id.Username, now)); err != nil {
		return out(ports.BonusFailed, storeError("append system transaction", err))
	}

	target.Credit(amount)
	if err := s.walletRepo.Save(ctx, dbTx, target); err != nil {
		return out(ports.BonusFailed, storeError("save wallet", err))
	}
	if err := s.txRepo.Append(ctx, dbTx, domain.NewRecord(target.ID, domain.KindTransfer, amount, system.Username, now)); err != nil {
		return out(ports.BonusFailed, storeError("append transaction", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return out(ports.BonusFailed, storeError("commit tx", err))
	}

	s.log.Info().
		Str("wallet_id", target.ID.String()).
		Str("amount", amount.StringFixed(domain.MoneyScale)).
		Msg("welcome bonus issued")

	return out(ports.BonusIssued, nil)
}

// Suspend disables bonus issuing until restore is called. Suspensions nest;
// calling restore more than once has no further effect.
func (s *BonusServiceImpl) Suspend() (restore func()) {
	s.suspended.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { s.suspended.Add(-1) })
	}
}

// Suspended reports whether at least one suspension is active.
func (s *BonusServiceImpl) Suspended() bool {
	return s.suspended.Load() > 0
}
