package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the kind of balance movement.
type TransactionKind string

const (
	KindDeposit  TransactionKind = "deposit"
	KindWithdraw TransactionKind = "withdraw"
	KindTransfer TransactionKind = "transfer"
)

// Valid reports whether k is a known kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdraw, KindTransfer:
		return true
	}
	return false
}

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
	StatusFailed    TransactionStatus = "failed"
)

// Counterparty labels for records without a user on the other side.
const (
	CounterpartyBalanceReveal  = "Balance Reveal"
	CounterpartyInitialFunding = "Initial Funding"
	CounterpartySystemFunding  = "System Funding"
)

// Transaction is an immutable, append-only ledger record. Amount is signed:
// positive credits the wallet, negative debits it.
type Transaction struct {
	ID           uuid.UUID         `json:"id"`
	WalletID     uuid.UUID         `json:"wallet_id"`
	Kind         TransactionKind   `json:"transaction_type"`
	Amount       decimal.Decimal   `json:"amount"`
	Counterparty *string           `json:"counterparty,omitempty"`
	Status       TransactionStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewRecord builds a completed record. An empty counterparty is stored as nil.
func NewRecord(walletID uuid.UUID, kind TransactionKind, amount decimal.Decimal, counterparty string, at time.Time) *Transaction {
	t := &Transaction{
		ID:        uuid.New(),
		WalletID:  walletID,
		Kind:      kind,
		Amount:    amount,
		Status:    StatusCompleted,
		CreatedAt: at,
	}
	if counterparty != "" {
		t.Counterparty = &counterparty
	}
	return t
}

// IsCredit returns true if the record increases the balance.
func (t *Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}
