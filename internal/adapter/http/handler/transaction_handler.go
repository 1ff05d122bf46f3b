package handler

import (
	"time"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	dateLayout      = "2006-01-02"
	defaultPageSize = 10
)

// TransactionHandler handles the transaction history endpoint.
type TransactionHandler struct {
	querySvc ports.QueryService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(querySvc ports.QueryService) *TransactionHandler {
	return &TransactionHandler{querySvc: querySvc}
}

// ListTransactions handles GET /api/v1/transactions.
//
// Query parameters: transaction_type (deposit, withdraw, transfer),
// start_date and end_date (YYYY-MM-DD, inclusive), page, page_size.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	id, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var q dto.TransactionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	filter := ports.TransactionFilter{Page: q.Page, PageSize: q.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}
	if q.TransactionType != "" {
		kind := domain.TransactionKind(q.TransactionType)
		filter.Kind = &kind
	}
	if q.StartDate != "" {
		d, err := time.Parse(dateLayout, q.StartDate)
		if err != nil {
			response.Error(c, apperror.Validation("start_date must be YYYY-MM-DD"))
			return
		}
		filter.StartDate = &d
	}
	if q.EndDate != "" {
		d, err := time.Parse(dateLayout, q.EndDate)
		if err != nil {
			response.Error(c, apperror.Validation("end_date must be YYYY-MM-DD"))
			return
		}
		filter.EndDate = &d
	}

	items, total, err := h.querySvc.ListTransactions(c.Request.Context(), id, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.TransactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, dto.NewTransactionResponse(t))
	}
	response.Paged(c, out, total, filter.Page, filter.PageSize)
}
