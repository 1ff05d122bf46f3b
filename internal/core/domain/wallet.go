package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the single currency wallets are opened in.
const DefaultCurrency = "EGP"

// Wallet holds the balance of exactly one identity.
type Wallet struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	RevealCount int             `json:"-"`
	RevealDate  *time.Time      `json:"-"` // Calendar date of the last reveal, nil if never revealed
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewWallet returns a zero-balance wallet for owner.
func NewWallet(ownerID uuid.UUID, currency string, now time.Time) *Wallet {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Balance:   Zero,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanDebit reports whether amount can leave the wallet without going negative.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// Credit adds amount to the balance.
func (w *Wallet) Credit(amount decimal.Decimal) {
	w.Balance = w.Balance.Add(amount)
}

// Debit subtracts amount from the balance. Callers check CanDebit first.
func (w *Wallet) Debit(amount decimal.Decimal) {
	w.Balance = w.Balance.Sub(amount)
}

// RevealsOn returns the reveal count that applies on day, which is zero
// when the last reveal happened on another day.
func (w *Wallet) RevealsOn(day time.Time) int {
	if w.RevealDate == nil || !SameDate(*w.RevealDate, day) {
		return 0
	}
	return w.RevealCount
}

// Snapshot is the externally visible state of a wallet.
type Snapshot struct {
	WalletID  uuid.UUID       `json:"wallet_id"`
	Username  string          `json:"username"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

// SnapshotOf builds the visible state of w for its owner.
func SnapshotOf(w *Wallet, username string) Snapshot {
	return Snapshot{
		WalletID:  w.ID,
		Username:  username,
		Balance:   w.Balance,
		Currency:  w.Currency,
		CreatedAt: w.CreatedAt,
	}
}
