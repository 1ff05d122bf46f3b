package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("WAL_001", "Insufficient balance", http.StatusBadRequest),
			expected: "[WAL_001] Insufficient balance",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("WAL_001", "test", http.StatusBadRequest).Unwrap())
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InsufficientFunds", ErrInsufficientFunds(), "WAL_001", 400},
		{"InvalidAmount", ErrInvalidAmount(), "WAL_002", 400},
		{"NotFound", ErrNotFound("Wallet"), "WAL_004", 404},
		{"InvalidRecipient", ErrInvalidRecipient(), "WAL_005", 400},
		{"RecipientNotFound", ErrRecipientNotFound(), "WAL_006", 404},
		{"InvalidIdentity", ErrInvalidIdentity(), "WAL_007", 400},
		{"BalanceLimitExceeded", ErrBalanceLimitExceeded(), "WAL_008", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_001", 401},
		{"UsernameExists", ErrUsernameExists(), "AUTH_002", 409},
		{"InvalidToken", ErrInvalidToken(), "AUTH_003", 401},
		{"EmailExists", ErrEmailExists(), "AUTH_004", 409},
		{"AccountLocked", ErrAccountLocked(), "AUTH_005", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	internal := InternalError(inner)
	assert.Equal(t, "SYS_001", internal.Code)
	assert.Equal(t, 500, internal.HTTPStatus)
	assert.True(t, errors.Is(internal, inner))

	conflict := ErrConflict(inner)
	assert.Equal(t, "SYS_002", conflict.Code)
	assert.Equal(t, 503, conflict.HTTPStatus)
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("transfer: %w", ErrInsufficientFunds())

	assert.True(t, HasCode(wrapped, CodeInsufficientFunds))
	assert.False(t, HasCode(wrapped, CodeInvalidAmount))
	assert.False(t, HasCode(errors.New("plain"), CodeInsufficientFunds))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrConflict(errors.New("deadlock"))))
	assert.False(t, IsRetryable(InternalError(errors.New("boom"))))
	assert.False(t, IsRetryable(nil))
}
