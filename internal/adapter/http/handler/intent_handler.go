package handler

import (
	"fmt"

	"civic-ledger/internal/adapter/http/dto"
	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/pkg/apperror"
	"civic-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// clientIntentTypes are the entry types a service client may post directly.
// Votes, withdrawals, donations and transfers are participant actions.
var clientIntentTypes = map[domain.TransactionType]bool{
	domain.TransactionTypeEarn:     true,
	domain.TransactionTypePrize:    true,
	domain.TransactionTypeFee:      true,
	domain.TransactionTypePurchase: true,
}

// IntentHandler lets trusted services (task engine, game engine, shop) move SUP.
type IntentHandler struct {
	processor ports.IntentProcessor
}

func NewIntentHandler(processor ports.IntentProcessor) *IntentHandler {
	return &IntentHandler{processor: processor}
}

// Post handles POST /api/v1/internal/intents.
func (h *IntentHandler) Post(c *gin.Context) {
	var req dto.IntentRequest
	if !bind(c, &req) {
		return
	}

	txType := domain.TransactionType(req.Type)
	if !clientIntentTypes[txType] {
		response.Error(c, apperror.Validation(fmt.Sprintf("type %q cannot be posted by a service client", req.Type)))
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		response.Error(c, apperror.Validation("account_id must be a UUID"))
		return
	}
	amount, err := dto.ParseAmount(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	res, err := h.processor.Process(c.Request.Context(), ports.Intent{
		AccountID:      accountID,
		Type:           txType,
		Amount:         amount,
		Reference:      req.Reference,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Mutation(c, res.Replayed, dto.NewIntentResponse(res))
}
