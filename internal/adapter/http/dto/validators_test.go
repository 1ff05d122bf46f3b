package dto

import (
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Username:  "  alice  ",
		Email:     " alice@example.com ",
		FirstName: " Alice ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, "alice@example.com", req.Email)
	assert.Equal(t, "Alice", req.FirstName)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := RegisterRequest{LastName: "<script>alert('x')</script>"}
	SanitizeStruct(&req)

	assert.Contains(t, req.LastName, "&lt;script&gt;")
	assert.NotContains(t, req.LastName, "<script>")
}

func TestSanitizeStruct_SkipsTaggedFields(t *testing.T) {
	req := LoginRequest{Username: " bob ", Password: " p<a>ss "}
	SanitizeStruct(&req)

	assert.Equal(t, "bob", req.Username)
	assert.Equal(t, " p<a>ss ", req.Password)
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	s := "  <b>x</b>  "
	v := struct{ Note *string }{Note: &s}
	SanitizeStruct(&v)
	assert.Equal(t, "&lt;b&gt;x&lt;/b&gt;", *v.Note)
}

func TestSanitizeStruct_LeavesAmountsAlone(t *testing.T) {
	amount := decimal.RequireFromString("12.50")
	req := TransferRequest{RecipientUsername: " carol ", Amount: &amount}
	SanitizeStruct(&req)

	assert.Equal(t, "carol", req.RecipientUsername)
	assert.True(t, req.Amount.Equal(decimal.RequireFromString("12.5")))
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	SanitizeStruct("hello") // should not panic
}

// --- Custom Validator tests ---

func TestUsername_Valid(t *testing.T) {
	cases := []string{"abc", "alice_01", "Bob-Smith", "ahmed1", "a_b-c"}
	for _, tc := range cases {
		assert.True(t, usernameRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestUsername_Invalid(t *testing.T) {
	cases := []string{
		"ab",          // too short
		"alice smith", // space
		"bob@home",    // at sign
		"carol.d",     // dot
		"<script>",    // angle brackets
		"",            // empty
	}
	for _, tc := range cases {
		assert.False(t, usernameRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestRegisterRequest_BindingRules(t *testing.T) {
	valid := RegisterRequest{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "secret1",
		FirstName: "Alice",
		LastName:  "Liddell",
	}
	require.NoError(t, binding.Validator.ValidateStruct(&valid))

	bad := valid
	bad.Username = "al ice"
	assert.Error(t, binding.Validator.ValidateStruct(&bad))

	bad = valid
	bad.Password = "short"
	assert.Error(t, binding.Validator.ValidateStruct(&bad))

	bad = valid
	bad.Email = "not-an-email"
	assert.Error(t, binding.Validator.ValidateStruct(&bad))
}

func TestAmountRequest_RequiresAmount(t *testing.T) {
	assert.Error(t, binding.Validator.ValidateStruct(&AmountRequest{}))
}

func TestNewTransactionResponse_FormatsMoney(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := domain.NewRecord(uuid.New(), domain.KindWithdraw, decimal.RequireFromString("-10"), domain.CounterpartyBalanceReveal, at)

	resp := NewTransactionResponse(*rec)
	assert.Equal(t, "-10.00", resp.Amount)
	assert.Equal(t, "debit", resp.Direction)
	assert.Equal(t, "withdraw", resp.TransactionType)
	assert.Equal(t, "2024-05-01T10:00:00Z", resp.CreatedAt)
	require.NotNil(t, resp.Counterparty)
	assert.Equal(t, "Balance Reveal", *resp.Counterparty)
}
