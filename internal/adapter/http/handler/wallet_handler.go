package handler

import (
	"strconv"
	"time"

	"civic-ledger/internal/adapter/http/dto"
	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/pkg/apperror"
	"civic-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler serves a participant's own account.
type WalletHandler struct {
	ledger    ports.LedgerService
	tiers     ports.TierService
	processor ports.IntentProcessor
}

func NewWalletHandler(ledger ports.LedgerService, tiers ports.TierService, processor ports.IntentProcessor) *WalletHandler {
	return &WalletHandler{ledger: ledger, tiers: tiers, processor: processor}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	accountID, ok := accountFromToken(c)
	if !ok {
		return
	}
	account, err := h.ledger.GetWallet(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewWalletResponse(account))
}

// GetLimits handles GET /api/v1/wallet/limits.
func (h *WalletHandler) GetLimits(c *gin.Context) {
	accountID, ok := accountFromToken(c)
	if !ok {
		return
	}
	view, err := h.tiers.Limits(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewLimitsResponse(view))
}

// ListTransactions handles GET /api/v1/transactions?since=&limit=.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	accountID, ok := accountFromToken(c)
	if !ok {
		return
	}

	params := ports.TransactionListParams{AccountID: accountID}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			response.Error(c, apperror.Validation("limit must be a positive integer"))
			return
		}
		params.Limit = limit
	}
	if raw := c.Query("since"); raw != "" {
		since, err := parseSince(raw)
		if err != nil {
			response.Error(c, apperror.Validation("since must be RFC3339 or unix seconds"))
			return
		}
		params.Since = &since
	}

	txns, err := h.ledger.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionListResponse(txns))
}

// Withdraw handles POST /api/v1/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	accountID, ok := accountFromToken(c)
	if !ok {
		return
	}
	var req dto.WithdrawRequest
	if !bind(c, &req) {
		return
	}
	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	h.process(c, ports.Intent{
		AccountID:      accountID,
		Type:           domain.TransactionTypeWithdraw,
		Amount:         amount,
		IdempotencyKey: req.IdempotencyKey,
	})
}

// Donate handles POST /api/v1/donate. The project id becomes the entry reference.
func (h *WalletHandler) Donate(c *gin.Context) {
	accountID, ok := accountFromToken(c)
	if !ok {
		return
	}
	var req dto.DonateRequest
	if !bind(c, &req) {
		return
	}
	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	ref := "project:" + req.ProjectID
	h.process(c, ports.Intent{
		AccountID:      accountID,
		Type:           domain.TransactionTypeDonate,
		Amount:         amount,
		Reference:      &ref,
		IdempotencyKey: req.IdempotencyKey,
	})
}

// Transfer handles POST /api/v1/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	accountID, ok := accountFromToken(c)
	if !ok {
		return
	}
	var req dto.TransferRequest
	if !bind(c, &req) {
		return
	}
	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}
	to, err := uuid.Parse(req.ToAccountID)
	if err != nil {
		response.Error(c, apperror.Validation("to_account_id must be a UUID"))
		return
	}

	h.process(c, ports.Intent{
		AccountID:      accountID,
		Type:           domain.TransactionTypeTransfer,
		Amount:         amount,
		CounterpartyID: &to,
		IdempotencyKey: req.IdempotencyKey,
	})
}

func (h *WalletHandler) process(c *gin.Context, intent ports.Intent) {
	res, err := h.processor.Process(c.Request.Context(), intent)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Mutation(c, res.Replayed, dto.NewIntentResponse(res))
}

func parseSince(raw string) (time.Time, error) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}
