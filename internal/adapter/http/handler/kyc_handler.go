package handler

import (
	"civic-ledger/internal/adapter/http/dto"
	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/pkg/apperror"
	"civic-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KYCHandler accepts submissions from participants and verdicts from the provider.
type KYCHandler struct {
	kyc ports.KYCService
}

func NewKYCHandler(kyc ports.KYCService) *KYCHandler {
	return &KYCHandler{kyc: kyc}
}

// Submit handles POST /api/v1/kyc/submit.
func (h *KYCHandler) Submit(c *gin.Context) {
	accountID, ok := accountFromToken(c)
	if !ok {
		return
	}
	var req dto.KYCSubmitRequest
	if !bind(c, &req) {
		return
	}

	sub, err := h.kyc.Submit(c.Request.Context(), ports.KYCSubmitRequest{
		AccountID:      accountID,
		RequestedTier:  domain.VerificationTier(req.RequestedTier),
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewKYCSubmissionResponse(sub))
}

// Decide handles POST /api/v1/internal/kyc/decisions. Only HMAC clients
// holding the kyc scope reach it.
func (h *KYCHandler) Decide(c *gin.Context) {
	var req dto.KYCDecisionRequest
	if !bind(c, &req) {
		return
	}
	id, err := uuid.Parse(req.SubmissionID)
	if err != nil {
		response.Error(c, apperror.Validation("submission_id must be a UUID"))
		return
	}

	sub, err := h.kyc.Decide(c.Request.Context(), ports.KYCDecisionRequest{
		SubmissionID: id,
		Approved:     *req.Approved,
		Note:         req.Note,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewKYCSubmissionResponse(sub))
}
