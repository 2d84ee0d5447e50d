package handler

import (
	"time"

	"civic-ledger/internal/adapter/http/dto"
	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/pkg/apperror"
	"civic-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VotingHandler serves rounds, candidates and vote casting to participants.
type VotingHandler struct {
	voting     ports.VotingService
	candidates ports.CandidateService
	now        func() time.Time
}

func NewVotingHandler(voting ports.VotingService, candidates ports.CandidateService) *VotingHandler {
	return &VotingHandler{voting: voting, candidates: candidates, now: time.Now}
}

// CastVote handles POST /api/v1/vote.
func (h *VotingHandler) CastVote(c *gin.Context) {
	accountID, ok := accountFromToken(c)
	if !ok {
		return
	}
	var req dto.VoteRequest
	if !bind(c, &req) {
		return
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		response.Error(c, apperror.Validation("candidate_id must be a UUID"))
		return
	}
	roundID, err := uuid.Parse(req.RoundID)
	if err != nil {
		response.Error(c, apperror.Validation("round_id must be a UUID"))
		return
	}

	res, err := h.voting.CastVote(c.Request.Context(), ports.CastVoteRequest{
		AccountID:      accountID,
		CandidateID:    candidateID,
		RoundID:        roundID,
		Weight:         req.Weight,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Mutation(c, res.Replayed, dto.NewVoteResponse(res))
}

// ListRounds handles GET /api/v1/rounds.
func (h *VotingHandler) ListRounds(c *gin.Context) {
	rounds, err := h.voting.ListRounds(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	now := h.now()
	items := make([]dto.RoundResponse, 0, len(rounds))
	for i := range rounds {
		items = append(items, dto.NewRoundResponse(&rounds[i], now))
	}
	response.OK(c, items)
}

// GetRound handles GET /api/v1/rounds/:id.
func (h *VotingHandler) GetRound(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	round, err := h.voting.GetRound(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewRoundResponse(round, h.now()))
}

// GetCandidate handles GET /api/v1/candidates/:id.
func (h *VotingHandler) GetCandidate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	candidate, err := h.candidates.GetCandidate(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewCandidateResponse(candidate))
}

// Endorse handles POST /api/v1/candidates/:id/endorsements.
func (h *VotingHandler) Endorse(c *gin.Context) {
	accountID, ok := accountFromToken(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.EndorseRequest
	if !bind(c, &req) {
		return
	}

	candidate, err := h.candidates.AddEndorsement(c.Request.Context(), ports.EndorseRequest{
		CandidateID:       id,
		EndorserAccountID: accountID,
		Category:          domain.EndorsementCategory(req.Category),
		Rating:            req.Rating,
		Comment:           req.Comment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewCandidateResponse(candidate))
}
