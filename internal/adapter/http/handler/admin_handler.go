package handler

import (
	"time"

	"civic-ledger/internal/adapter/http/dto"
	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/pkg/apperror"
	"civic-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes operator endpoints. Every route sits behind
// JWTAuth and RequireRole(domain.RoleAdmin).
type AdminHandler struct {
	ledger     ports.LedgerService
	tiers      ports.TierService
	processor  ports.IntentProcessor
	voting     ports.VotingService
	candidates ports.CandidateService
}

func NewAdminHandler(
	ledger ports.LedgerService,
	tiers ports.TierService,
	processor ports.IntentProcessor,
	voting ports.VotingService,
	candidates ports.CandidateService,
) *AdminHandler {
	return &AdminHandler{
		ledger:     ledger,
		tiers:      tiers,
		processor:  processor,
		voting:     voting,
		candidates: candidates,
	}
}

// CreateRound handles POST /api/v1/admin/rounds.
func (h *AdminHandler) CreateRound(c *gin.Context) {
	var req dto.CreateRoundRequest
	if !bind(c, &req) {
		return
	}
	cost, err := dto.ParseAmount(req.TokenCost)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	round, err := h.voting.CreateRound(c.Request.Context(), ports.CreateRoundRequest{
		Name:            req.Name,
		TokenCost:       cost,
		MaxVotesPerUser: req.MaxVotesPerUser,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewRoundResponse(round, time.Now()))
}

// SweepRounds handles POST /api/v1/admin/rounds/sweep.
func (h *AdminHandler) SweepRounds(c *gin.Context) {
	moved, err := h.voting.SweepRounds(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"transitioned": moved})
}

// CreateCandidate handles POST /api/v1/admin/candidates.
func (h *AdminHandler) CreateCandidate(c *gin.Context) {
	var req dto.CreateCandidateRequest
	if !bind(c, &req) {
		return
	}
	candidate, err := h.candidates.CreateCandidate(c.Request.Context(), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewCandidateResponse(candidate))
}

// AdvanceVetting handles POST /api/v1/admin/candidates/:id/vetting.
func (h *AdminHandler) AdvanceVetting(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.VettingRequest
	if !bind(c, &req) {
		return
	}
	to := domain.VettingStatus(req.Status)
	if !to.Valid() {
		response.Error(c, apperror.Validation("unknown vetting status"))
		return
	}

	candidate, err := h.candidates.AdvanceVetting(c.Request.Context(), id, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewCandidateResponse(candidate))
}

// RecomputeScore handles POST /api/v1/admin/candidates/:id/recompute.
func (h *AdminHandler) RecomputeScore(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	candidate, err := h.candidates.RecomputeScore(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewCandidateResponse(candidate))
}

// RecountTally handles POST /api/v1/admin/candidates/:id/tally/recount.
func (h *AdminHandler) RecountTally(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.voting.RecomputeTally(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rec)
}

// RevokeTier handles POST /api/v1/admin/accounts/:id/tier/revoke.
func (h *AdminHandler) RevokeTier(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.RevokeTierRequest
	if !bind(c, &req) {
		return
	}
	account, err := h.tiers.Revoke(c.Request.Context(), id, domain.VerificationTier(req.Tier), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewWalletResponse(account))
}

// Deactivate handles POST /api/v1/admin/accounts/:id/deactivate.
func (h *AdminHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	account, err := h.ledger.Deactivate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewWalletResponse(account))
}

// Reconcile handles GET /api/v1/admin/accounts/:id/reconcile.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.ledger.Reconcile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rec)
}

// Reverse handles POST /api/v1/admin/transactions/:id/reverse.
func (h *AdminHandler) Reverse(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.ReverseRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.processor.Reverse(c.Request.Context(), ports.ReverseRequest{
		TransactionID: id,
		Reason:        req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewIntentResponse(res))
}
