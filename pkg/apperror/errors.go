package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Codes that callers compare against.
const (
	CodeInsufficientFunds = "WAL_001"
	CodeInvalidAmount     = "WAL_002"
	CodeNotFound          = "WAL_004"
	CodeInvalidRecipient  = "WAL_005"
	CodeRecipientNotFound = "WAL_006"
	CodeInvalidIdentity   = "WAL_007"
	CodeBalanceLimit      = "WAL_008"

	CodeInvalidCredentials = "AUTH_001"
	CodeUsernameExists     = "AUTH_002"
	CodeInvalidToken       = "AUTH_003"
	CodeEmailExists        = "AUTH_004"
	CodeAccountLocked      = "AUTH_005"

	CodeRateLimited = "RATE_001"

	CodeInternal = "SYS_001"
	CodeConflict = "SYS_002"

	CodeValidation = "VAL_001"
)

// ---- Wallet / Ledger (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be positive, at most 1000000 and have no more than 2 decimal places", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInvalidRecipient() *AppError {
	return New(CodeInvalidRecipient, "You cannot transfer money to yourself", http.StatusBadRequest)
}

func ErrRecipientNotFound() *AppError {
	return New(CodeRecipientNotFound, "Recipient not found", http.StatusNotFound)
}

func ErrInvalidIdentity() *AppError {
	return New(CodeInvalidIdentity, "System identities do not own a provisioned wallet", http.StatusBadRequest)
}

// ErrBalanceLimitExceeded is returned when a credit would push a balance
// past the largest value the store can hold.
func ErrBalanceLimitExceeded() *AppError {
	return New(CodeBalanceLimit, "Balance limit exceeded", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New(CodeUsernameExists, "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrEmailExists() *AppError {
	return New(CodeEmailExists, "Email already exists", http.StatusConflict)
}

func ErrAccountLocked() *AppError {
	return New(CodeAccountLocked, "Account locked: too many login attempts, try again later", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrConflict reports a transient lock or serialization failure. The request
// had no effect and may be retried.
func ErrConflict(err error) *AppError {
	return Wrap(CodeConflict, "Concurrent update conflict, retry the request", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// HasCode reports whether err is an *AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsRetryable reports whether err is a transient conflict.
func IsRetryable(err error) bool {
	return HasCode(err, CodeConflict)
}
