package handler

import (
	"context"
	"fmt"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	ledgerSvc ports.LedgerService
	querySvc  ports.QueryService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledgerSvc ports.LedgerService, querySvc ports.QueryService) *WalletHandler {
	return &WalletHandler{
		ledgerSvc: ledgerSvc,
		querySvc:  querySvc,
	}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	id, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	snap, err := h.querySvc.GetWallet(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewWalletResponse(*snap))
}

// Deposit handles POST /api/v1/wallet/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	h.applyAmount(c, h.ledgerSvc.Deposit)
}

// Withdraw handles POST /api/v1/wallet/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.applyAmount(c, h.ledgerSvc.Withdraw)
}

type amountOp func(ctx context.Context, id domain.Identity, amount decimal.Decimal) (*domain.Snapshot, error)

func (h *WalletHandler) applyAmount(c *gin.Context, op amountOp) {
	id, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	snap, err := op(c.Request.Context(), id, *req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewWalletResponse(*snap))
}

// Transfer handles POST /api/v1/wallet/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	id, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), id, req.RecipientUsername, *req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	amount := result.Amount.StringFixed(domain.MoneyScale)
	response.OK(c, dto.TransferResponse{
		Message:   fmt.Sprintf("Successfully transferred %s to %s.", amount, result.Recipient),
		Recipient: result.Recipient,
		Amount:    amount,
		Wallet:    dto.NewWalletResponse(result.Sender),
	})
}

// RevealBalance handles POST /api/v1/wallet/reveal-balance.
func (h *WalletHandler) RevealBalance(c *gin.Context) {
	id, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	result, err := h.ledgerSvc.RevealBalance(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RevealResponse{
		Balance:         result.Balance.StringFixed(domain.MoneyScale),
		FreeRevealsLeft: result.FreeRevealsLeft,
		FeeDeducted:     result.FeeCharged.IsPositive(),
		Fee:             result.FeeCharged.StringFixed(domain.MoneyScale),
	})
}
