package ports

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations. Access and refresh tokens are
// not interchangeable: each Validate accepts only its own kind.
type TokenService interface {
	Generate(userID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
	GenerateRefresh(userID uuid.UUID, username string) (string, time.Time, error)
	ValidateRefresh(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID   uuid.UUID
	Username string
}

// LoginGuard counts failed logins per key and locks the key out once the
// failure limit is reached.
type LoginGuard interface {
	// Locked reports whether key is locked and for how much longer.
	Locked(ctx context.Context, key string) (bool, time.Duration, error)
	RecordFailure(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// --- Service Ports (Business Logic) ---

// LedgerService is the balance-mutation engine. Every operation runs in a
// single atomic unit and either fully applies or has no effect.
type LedgerService interface {
	Deposit(ctx context.Context, id domain.Identity, amount decimal.Decimal) (*domain.Snapshot, error)
	Withdraw(ctx context.Context, id domain.Identity, amount decimal.Decimal) (*domain.Snapshot, error)
	Transfer(ctx context.Context, id domain.Identity, recipientUsername string, amount decimal.Decimal) (*TransferResult, error)
	RevealBalance(ctx context.Context, id domain.Identity) (*RevealResult, error)
}

// TransferResult is returned by a committed transfer.
type TransferResult struct {
	Sender    domain.Snapshot
	Recipient string
	Amount    decimal.Decimal
}

// RevealResult is returned by a committed balance reveal.
type RevealResult struct {
	Balance         decimal.Decimal
	FreeRevealsLeft int
	FeeCharged      decimal.Decimal
}

// QueryService serves read-only views of a wallet and its history.
type QueryService interface {
	GetWallet(ctx context.Context, id domain.Identity) (*domain.Snapshot, error)
	ListTransactions(ctx context.Context, id domain.Identity, filter TransactionFilter) ([]domain.Transaction, int64, error)
}

// TransactionFilter narrows a listing. Dates are inclusive calendar days.
type TransactionFilter struct {
	Kind      *domain.TransactionKind
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// BonusStatus describes what happened to a welcome bonus.
type BonusStatus string

const (
	BonusIssued                   BonusStatus = "issued"
	BonusSkippedSuspended         BonusStatus = "skipped_suspended"
	BonusSkippedSystemIdentity    BonusStatus = "skipped_system_identity"
	BonusSkippedNoSystemWallet    BonusStatus = "skipped_no_system_wallet"
	BonusSkippedInsufficientFunds BonusStatus = "skipped_insufficient_funds"
	BonusFailed                   BonusStatus = "failed"
)

// BonusOutcome reports the result of a best-effort bonus.
type BonusOutcome struct {
	Status BonusStatus
	Amount decimal.Decimal
	Err    error
}

// BonusService provisions wallets for new identities and pays the welcome bonus.
type BonusService interface {
	// ProvisionWallet creates the zero-balance wallet of user inside tx.
	ProvisionWallet(ctx context.Context, tx pgx.Tx, user *domain.User) (*domain.Wallet, error)
	// IssueBonus never fails the caller; the outcome is informational.
	IssueBonus(ctx context.Context, id domain.Identity) BonusOutcome
	// Suspend disables IssueBonus until the returned restore is called.
	Suspend() (restore func())
	Suspended() bool
}

// SeedService populates the store with synthetic identities and history.
type SeedService interface {
	Run(ctx context.Context, opts SeedOptions) (*SeedReport, error)
}

// SeedOptions configures a seeding run.
type SeedOptions struct {
	Users               int
	TransactionsPerUser int
	Since               time.Time
	Seed                int64
	Reset               bool
	Password            string
}

// SeedReport summarizes a committed seeding run.
type SeedReport struct {
	UsersCreated   int
	RecordsWritten int64
	RecordsSkipped int
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenPair, error)
	// Refresh exchanges a refresh token for a new pair.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// TokenPair is the credential set handed out at login and on refresh.
type TokenPair struct {
	AccessToken   string
	AccessExpiry  time.Time
	RefreshToken  string
	RefreshExpiry time.Time
}

// RegisterRequest holds input for identity registration.
type RegisterRequest struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	IsSystem  bool
	SkipBonus bool
}

// RegisterResponse holds the registration result.
type RegisterResponse struct {
	UserID   uuid.UUID
	Username string
	WalletID uuid.UUID
	Bonus    BonusOutcome
}

// LoginRequest holds login credentials and the caller's address.
type LoginRequest struct {
	Username string
	Password string
	ClientIP string
}
