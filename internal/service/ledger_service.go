package service

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	policy     LedgerPolicy
	now        Clock
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	policy LedgerPolicy,
	clock Clock,
	log zerolog.Logger,
) *LedgerServiceImpl {
	if clock == nil {
		clock = SystemClock
	}
	return &LedgerServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		policy:     policy,
		now:        clock,
		log:        log,
	}
}

// Deposit credits the caller's wallet.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, id domain.Identity, amount decimal.Decimal) (*domain.Snapshot, error) {
	return s.applySingle(ctx, id, domain.KindDeposit, amount)
}

// Withdraw debits the caller's wallet. The balance never goes negative.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, id domain.Identity, amount decimal.Decimal) (*domain.Snapshot, error) {
	return s.applySingle(ctx, id, domain.KindWithdraw, amount)
}

func (s *LedgerServiceImpl) applySingle(ctx context.Context, id domain.Identity, kind domain.TransactionKind, amount decimal.Decimal) (*domain.Snapshot, error) {
	if !domain.ValidateAmount(amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storeError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByOwnerIDForUpdate(ctx, dbTx, id.UserID)
	if err != nil {
		return nil, storeError("lock wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	signed := amount
	switch kind {
	case domain.KindWithdraw:
		if !wallet.CanDebit(amount) {
			return nil, apperror.ErrInsufficientFunds()
		}
		wallet.Debit(amount)
		signed = amount.Neg()
	default:
		wallet.Credit(amount)
		if wallet.Balance.GreaterThan(domain.MaxBalance) {
			return nil, apperror.ErrBalanceLimitExceeded()
		}
	}

	if err := s.walletRepo.Save(ctx, dbTx, wallet); err != nil {
		return nil, storeError("save wallet", err)
	}
	if err := s.txRepo.Append(ctx, dbTx, domain.NewRecord(wallet.ID, kind, signed, "", s.now())); err != nil {
		return nil, storeError("append transaction", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storeError("commit tx", err)
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("kind", string(kind)).
		Str("amount", amount.StringFixed(domain.MoneyScale)).
		Msg("balance updated")

	snap := domain.SnapshotOf(wallet, id.Username)
	return &snap, nil
}

// Transfer moves amount from the caller to the wallet of recipientUsername.
// Both wallets change and both records are written, or nothing is.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, id domain.Identity, recipientUsername string, amount decimal.Decimal) (*ports.TransferResult, error) {
	if !domain.ValidateAmount(amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	if recipientUsername == id.Username {
		return nil, apperror.ErrInvalidRecipient()
	}

	recipient, err := s.userRepo.GetByUsername(ctx, recipientUsername)
	if err != nil {
		return nil, storeError("find recipient", err)
	}
	if recipient == nil {
		return nil, apperror.ErrRecipientNotFound()
	}
	if recipient.ID == id.UserID {
		return nil, apperror.ErrInvalidRecipient()
	}

	// Wallet ids never change, so an unlocked read is enough to order the locks.
	senderRef, err := s.walletRepo.GetByOwnerID(ctx, id.UserID)
	if err != nil {
		return nil, storeError("find sender wallet", err)
	}
	if senderRef == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	recipientRef, err := s.walletRepo.GetByOwnerID(ctx, recipient.ID)
	if err != nil {
		return nil, storeError("find recipient wallet", err)
	}
	if recipientRef == nil {
		return nil, apperror.ErrRecipientNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storeError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	sender, receiver, err := lockWalletPair(ctx, s.walletRepo, dbTx, senderRef.ID, recipientRef.ID)
	if err != nil {
		return nil, storeError("lock wallets", err)
	}
	if sender == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if receiver == nil {
		return nil, apperror.ErrRecipientNotFound()
	}

	if !sender.CanDebit(amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	now := s.now()

	sender.Debit(amount)
	if err := s.walletRepo.Save(ctx, dbTx, sender); err != nil {
		return nil, storeError("save sender wallet", err)
	}
	if err := s.txRepo.Append(ctx, dbTx, domain.NewRecord(sender.ID, domain.KindTransfer, amount.Neg(), recipient.Username, now)); err != nil {
		return nil, storeError("append sender transaction", err)
	}

	receiver.Credit(amount)
	if receiver.Balance.GreaterThan(domain.MaxBalance) {
		return nil, apperror.ErrBalanceLimitExceeded()
	}
	if err := s.walletRepo.Save(ctx, dbTx, receiver); err != nil {
		return nil, storeError("save recipient wallet", err)
	}
	if err := s.txRepo.Append(ctx, dbTx, domain.NewRecord(receiver.ID, domain.KindTransfer, amount, id.Username, now)); err != nil {
		return nil, storeError("append recipient transaction", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storeError("commit tx", err)
	}

	s.log.Info().
		Str("sender_wallet_id", sender.ID.String()).
		Str("recipient_wallet_id", receiver.ID.String()).
		Str("amount", amount.StringFixed(domain.MoneyScale)).
		Msg("transfer completed")

	return &ports.TransferResult{
		Sender:    domain.SnapshotOf(sender, id.Username),
		Recipient: recipient.Username,
		Amount:    amount,
	}, nil
}

// RevealBalance returns the balance, charging the reveal fee once the free
// reveals of the day are used up. A reveal that cannot pay its fee changes
// nothing, including the day's count.
func (s *LedgerServiceImpl) RevealBalance(ctx context.Context, id domain.Identity) (*ports.RevealResult, error) {
	today := domain.DateOf(s.now(), s.policy.Location)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storeError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByOwnerIDForUpdate(ctx, dbTx, id.UserID)
	if err != nil {
		return nil, storeError("lock wallet", err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	count := wallet.RevealsOn(today) + 1
	wallet.RevealCount = count
	wallet.RevealDate = &today

	fee := decimal.Zero
	if count > s.policy.FreeRevealsPerDay && s.policy.RevealFee.IsPositive() {
		if !wallet.CanDebit(s.policy.RevealFee) {
			return nil, apperror.ErrInsufficientFunds()
		}
		fee = s.policy.RevealFee
		wallet.Debit(fee)
		rec := domain.NewRecord(wallet.ID, domain.KindWithdraw, fee.Neg(), domain.CounterpartyBalanceReveal, s.now())
		if err := s.txRepo.Append(ctx, dbTx, rec); err != nil {
			return nil, storeError("append fee transaction", err)
		}
	}

	if err := s.walletRepo.Save(ctx, dbTx, wallet); err != nil {
		return nil, storeError("save wallet", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, storeError("commit tx", err)
	}

	left := s.policy.FreeRevealsPerDay - count
	if left < 0 {
		left = 0
	}

	s.log.Debug().
		Str("wallet_id", wallet.ID.String()).
		Int("reveal_count", count).
		Str("fee", fee.StringFixed(domain.MoneyScale)).
		Msg(fmt.Sprintf("balance revealed (%d free left)", left))

	return &ports.RevealResult{
		Balance:         wallet.Balance,
		FreeRevealsLeft: left,
		FeeCharged:      fee,
	}, nil
}
