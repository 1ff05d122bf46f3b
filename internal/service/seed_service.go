package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	seedFirstNames = []string{
		"Ahmed", "Mohamed", "Mahmoud", "Ali", "Khaled", "Youssef", "Omar", "Amr",
		"Tarek", "Mostafa", "Hassan", "Hussein", "Ibrahim", "Karim", "Mazen",
		"Fatma", "Aya", "Mariam", "Sara", "Hana",
	}
	seedLastNames = []string{
		"El-Sayed", "Hassan", "Ali", "Mansour", "Ibrahim", "Fahmy", "Shalaby",
		"Abdel-Rahman", "Ghanem", "El-Masry", "Kamel", "Salama", "Diab",
		"Ramadan", "El-Sharkawy", "Nassar", "Hamdy", "Tawfik", "Fawzy", "Aziz",
	}
)

// Cent bounds of generated amounts.
const (
	seedStartMinCents = 200_000 // 2000.00
	seedStartMaxCents = 1_000_000
	seedAmountMin     = 1_000 // 10.00
	seedAmountMax     = 50_000
)

// SeedServiceImpl implements ports.SeedService.
type SeedServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	bonus      ports.BonusService
	hashSvc    ports.HashService
	policy     LedgerPolicy
	now        Clock
	log        zerolog.Logger
}

// NewSeedService creates a new SeedServiceImpl.
func NewSeedService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	bonus ports.BonusService,
	hashSvc ports.HashService,
	policy LedgerPolicy,
	clock Clock,
	log zerolog.Logger,
) *SeedServiceImpl {
	if clock == nil {
		clock = SystemClock
	}
	return &SeedServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		transactor: transactor,
		bonus:      bonus,
		hashSvc:    hashSvc,
		policy:     policy,
		now:        clock,
		log:        log,
	}
}

// seedAccount tracks one seeded wallet and its running balance.
type seedAccount struct {
	user    *domain.User
	wallet  *domain.Wallet
	balance decimal.Decimal
}

// Run generates identities, wallets and history in a single unit. The bonus
// issuer is suspended for the whole run. Every generated wallet ends with a
// balance equal to the sum of its records.
func (s *SeedServiceImpl) Run(ctx context.Context, opts ports.SeedOptions) (*ports.SeedReport, error) {
	now := s.now()
	if opts.Users < 0 || opts.TransactionsPerUser < 0 {
		return nil, apperror.Validation("users and transactions per user must not be negative")
	}
	if opts.Password == "" {
		return nil, apperror.Validation("seed password must not be empty")
	}
	if opts.Since.IsZero() || !opts.Since.Before(now) {
		return nil, apperror.Validation("seed start date must be in the past")
	}

	restore := s.bonus.Suspend()
	defer restore()

	rng := rand.New(rand.NewSource(opts.Seed))
	log := s.log.With().Int("users", opts.Users).Int("per_user", opts.TransactionsPerUser).Logger()
	log.Info().Time("since", opts.Since).Bool("reset", opts.Reset).Msg("seeding started")

	passwordHash, err := s.hashSvc.Hash(opts.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storeError("begin tx", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if opts.Reset {
		removed, err := s.userRepo.DeleteNonSystem(ctx, dbTx)
		if err != nil {
			return nil, storeError("reset identities", err)
		}
		log.Info().Int64("removed", removed).Msg("existing identities removed")
	}

	var records []*domain.Transaction

	funding, err := s.fundSystemWallet(ctx, dbTx, passwordHash, opts.Since)
	if err != nil {
		return nil, err
	}
	if funding != nil {
		records = append(records, funding)
	}

	accounts := make([]*seedAccount, 0, opts.Users)
	for i := 1; i <= opts.Users; i++ {
		first := seedFirstNames[rng.Intn(len(seedFirstNames))]
		user := &domain.User{
			ID:           uuid.New(),
			Username:     fmt.Sprintf("%s%d", strings.ToLower(first), i),
			Email:        fmt.Sprintf("user%d@test.com", i),
			PasswordHash: passwordHash,
			FirstName:    seedFirstNames[rng.Intn(len(seedFirstNames))],
			LastName:     seedLastNames[rng.Intn(len(seedLastNames))],
			CreatedAt:    opts.Since,
		}
		if err := s.userRepo.Create(ctx, dbTx, user); err != nil {
			return nil, registrationError("create user", err)
		}
		wallet, err := s.bonus.ProvisionWallet(ctx, dbTx, user)
		if err != nil {
			return nil, err
		}

		start := decimal.New(seedStartMinCents+rng.Int63n(seedStartMaxCents-seedStartMinCents+1), -domain.MoneyScale)
		records = append(records, domain.NewRecord(wallet.ID, domain.KindDeposit, start, domain.CounterpartyInitialFunding, opts.Since))
		accounts = append(accounts, &seedAccount{user: user, wallet: wallet, balance: start})
	}

	history, skipped := s.generateHistory(rng, accounts, opts, now)
	records = append(records, history...)

	for _, acc := range accounts {
		acc.wallet.Balance = acc.balance
		acc.wallet.UpdatedAt = now
		if err := s.walletRepo.Save(ctx, dbTx, acc.wallet); err != nil {
			return nil, storeError("save wallet", err)
		}
	}

	written, err := s.txRepo.AppendBatch(ctx, dbTx, records)
	if err != nil {
		return nil, storeError("append transactions", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, registrationError("commit tx", err)
	}

	report := &ports.SeedReport{
		UsersCreated:   len(accounts),
		RecordsWritten: written,
		RecordsSkipped: skipped,
	}
	log.Info().
		Int64("records_written", report.RecordsWritten).
		Int("records_skipped", report.RecordsSkipped).
		Msg("seeding complete")

	return report, nil
}

// fundSystemWallet ensures the system identity and its wallet exist and tops
// the wallet up to the largest storable balance. The top-up is recorded as a
// deposit so the wallet still reconciles with its records.
func (s *SeedServiceImpl) fundSystemWallet(ctx context.Context, dbTx pgx.Tx, passwordHash string, at time.Time) (*domain.Transaction, error) {
	system, err := s.userRepo.GetByUsername(ctx, s.policy.SystemIdentity)
	if err != nil {
		return nil, storeError("find system identity", err)
	}
	if system == nil {
		system = &domain.User{
			ID:           uuid.New(),
			Username:     s.policy.SystemIdentity,
			Email:        s.policy.SystemIdentity + "@system.local",
			PasswordHash: passwordHash,
			FirstName:    "Bonus",
			LastName:     "Bot",
			IsSystem:     true,
			CreatedAt:    at,
		}
		if err := s.userRepo.Create(ctx, dbTx, system); err != nil {
			return nil, registrationError("create system identity", err)
		}
	}

	wallet, err := s.walletRepo.GetByOwnerIDForUpdate(ctx, dbTx, system.ID)
	if err != nil {
		return nil, storeError("lock system wallet", err)
	}
	if wallet == nil {
		wallet = domain.NewWallet(system.ID, s.policy.Currency, at)
		if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
			return nil, storeError("create system wallet", err)
		}
	}

	topUp := domain.MaxBalance.Sub(wallet.Balance)
	if !topUp.IsPositive() {
		return nil, nil
	}
	wallet.Credit(topUp)
	wallet.UpdatedAt = s.now()
	if err := s.walletRepo.Save(ctx, dbTx, wallet); err != nil {
		return nil, storeError("save system wallet", err)
	}
	return domain.NewRecord(wallet.ID, domain.KindDeposit, topUp, domain.CounterpartySystemFunding, at), nil
}

// seedCandidate is one drawn operation before the overdraw rule is applied.
type seedCandidate struct {
	at     time.Time
	from   int
	to     int // peer index, transfers only
	kind   domain.TransactionKind
	amount decimal.Decimal
}

// generateHistory draws TransactionsPerUser candidates per account, then
// replays every candidate of every account in one chronological pass.
// Debits that would overdraw the running balance at that moment are skipped,
// the same rule the engine applies, so each wallet's history stays
// non-negative when read in time order.
func (s *SeedServiceImpl) generateHistory(rng *rand.Rand, accounts []*seedAccount, opts ports.SeedOptions, now time.Time) ([]*domain.Transaction, int) {
	span := int64(now.Sub(opts.Since) / time.Second)
	if span < 1 {
		span = 1
	}
	kinds := []domain.TransactionKind{domain.KindDeposit, domain.KindWithdraw, domain.KindTransfer}

	candidates := make([]seedCandidate, 0, len(accounts)*opts.TransactionsPerUser)
	for idx := range accounts {
		for i := 0; i < opts.TransactionsPerUser; i++ {
			c := seedCandidate{
				// Strictly after Since so the starting deposit sorts first.
				at:     opts.Since.Add(time.Duration(1+rng.Int63n(span)) * time.Second),
				from:   idx,
				to:     -1,
				kind:   kinds[rng.Intn(len(kinds))],
				amount: decimal.New(seedAmountMin+rng.Int63n(seedAmountMax-seedAmountMin+1), -domain.MoneyScale),
			}
			if c.kind == domain.KindTransfer && len(accounts) > 1 {
				c.to = rng.Intn(len(accounts) - 1)
				if c.to >= idx {
					c.to++
				}
			}
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].at.Before(candidates[j].at) })

	var (
		out     []*domain.Transaction
		skipped int
		prev    time.Time
	)
	for _, c := range candidates {
		// Distinct stamps keep the replay order readable back from the store.
		at := c.at
		if !at.After(prev) {
			at = prev.Add(time.Microsecond)
		}
		acc := accounts[c.from]

		switch c.kind {
		case domain.KindDeposit:
			acc.balance = acc.balance.Add(c.amount)
			out = append(out, domain.NewRecord(acc.wallet.ID, c.kind, c.amount, "", at))

		case domain.KindWithdraw:
			if acc.balance.LessThan(c.amount) {
				skipped++
				continue
			}
			acc.balance = acc.balance.Sub(c.amount)
			out = append(out, domain.NewRecord(acc.wallet.ID, c.kind, c.amount.Neg(), "", at))

		case domain.KindTransfer:
			if c.to < 0 || acc.balance.LessThan(c.amount) {
				skipped++
				continue
			}
			to := accounts[c.to]
			acc.balance = acc.balance.Sub(c.amount)
			to.balance = to.balance.Add(c.amount)
			out = append(out,
				domain.NewRecord(acc.wallet.ID, c.kind, c.amount.Neg(), to.user.Username, at),
				domain.NewRecord(to.wallet.ID, c.kind, c.amount, acc.user.Username, at),
			)
		}
		prev = at
	}
	return out, skipped
}
