package dto

import (
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for identity registration.
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,username"`
	Email     string `json:"email" binding:"required,email,max=254"`
	Password  string `json:"password" binding:"required,min=6,max=128" sanitize:"-"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// AmountRequest is the request body for deposits and withdrawals.
// Amounts are accepted as JSON numbers or decimal strings.
type AmountRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

// TransferRequest is the request body for a transfer.
type TransferRequest struct {
	RecipientUsername string           `json:"recipient_username" binding:"required,max=150"`
	Amount            *decimal.Decimal `json:"amount" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	WalletID    string `json:"wallet_id,omitempty"`
	BonusStatus string `json:"bonus_status"`
	BonusAmount string `json:"bonus_amount,omitempty"`
}

// RefreshRequest is the request body for exchanging a refresh token.
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required" sanitize:"-"`
}

// LoginResponse is the response body for login and refresh.
type LoginResponse struct {
	Token         string `json:"token"`
	Expiry        int64  `json:"expiry"` // Unix timestamp
	RefreshToken  string `json:"refresh"`
	RefreshExpiry int64  `json:"refresh_expiry"`
}

// NewLoginResponse converts a token pair.
func NewLoginResponse(p *ports.TokenPair) LoginResponse {
	return LoginResponse{
		Token:         p.AccessToken,
		Expiry:        p.AccessExpiry.Unix(),
		RefreshToken:  p.RefreshToken,
		RefreshExpiry: p.RefreshExpiry.Unix(),
	}
}

// WalletResponse is the visible state of a wallet.
type WalletResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
}

// TransferResponse is the response body for a committed transfer.
type TransferResponse struct {
	Message   string         `json:"message"`
	Recipient string         `json:"recipient_username"`
	Amount    string         `json:"amount"`
	Wallet    WalletResponse `json:"wallet"`
}

// RevealResponse is the response body for a balance reveal.
type RevealResponse struct {
	Balance         string `json:"balance"`
	FreeRevealsLeft int    `json:"free_reveals_left"`
	FeeDeducted     bool   `json:"fee_deducted"`
	Fee             string `json:"fee"`
}

// TransactionResponse is one ledger record.
type TransactionResponse struct {
	ID              string  `json:"id"`
	WalletID        string  `json:"wallet_id"`
	TransactionType string  `json:"transaction_type"`
	Amount          string  `json:"amount"`
	Direction       string  `json:"direction"`
	Counterparty    *string `json:"counterparty"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
}

// TransactionListQuery holds the query parameters of the listing.
type TransactionListQuery struct {
	TransactionType string `form:"transaction_type" binding:"omitempty,oneof=deposit withdraw transfer"`
	StartDate       string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate         string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Page            int    `form:"page" binding:"omitempty,min=1"`
	PageSize        int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// NewWalletResponse formats a wallet snapshot.
func NewWalletResponse(s domain.Snapshot) WalletResponse {
	return WalletResponse{
		ID:        s.WalletID.String(),
		Username:  s.Username,
		Balance:   money(s.Balance),
		Currency:  s.Currency,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewTransactionResponse formats a ledger record.
func NewTransactionResponse(t domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID.String(),
		WalletID:        t.WalletID.String(),
		TransactionType: string(t.Kind),
		Amount:          money(t.Amount),
		Direction:       direction(&t),
		Counterparty:    t.Counterparty,
		Status:          string(t.Status),
		CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func direction(t *domain.Transaction) string {
	if t.IsCredit() {
		return "credit"
	}
	return "debit"
}

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}
