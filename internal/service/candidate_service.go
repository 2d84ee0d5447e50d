package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type candidateService struct {
	candidates   ports.CandidateRepository
	endorsements ports.EndorsementRepository
	log          zerolog.Logger
}

// NewCandidateService creates the candidate, vetting and credibility service.
func NewCandidateService(
	candidates ports.CandidateRepository,
	endorsements ports.EndorsementRepository,
	log zerolog.Logger,
) ports.CandidateService {
	return &candidateService{candidates: candidates, endorsements: endorsements, log: log}
}

func (s *candidateService) CreateCandidate(ctx context.Context, name string) (*domain.Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("candidate name is required")
	}
	now := time.Now().UTC()
	c := &domain.Candidate{
		ID:            uuid.New(),
		Name:          name,
		Integrity:     decimal.Zero,
		Competence:    decimal.Zero,
		Commitment:    decimal.Zero,
		OverallScore:  decimal.Zero,
		VettingStatus: domain.VettingPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.candidates.Create(ctx, c); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create candidate: %w", err))
	}
	return c, nil
}

func (s *candidateService) GetCandidate(ctx context.Context, id uuid.UUID) (*domain.Candidate, error) {
	c, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get candidate: %w", err))
	}
	if c == nil {
		return nil, apperror.ErrNotFound("candidate")
	}
	return c, nil
}

// AdvanceVetting moves a candidate exactly one stage forward.
func (s *candidateService) AdvanceVetting(ctx context.Context, id uuid.UUID, to domain.VettingStatus) (*domain.Candidate, error) {
	c, err := s.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	from := c.VettingStatus
	if !to.Valid() || !from.CanAdvanceTo(to) {
		return nil, apperror.ErrInvalidVettingTransition(string(from), string(to))
	}

	ok, err := s.candidates.UpdateVetting(ctx, id, from, to)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update vetting: %w", err))
	}
	if !ok {
		// Someone else moved it first.
		return nil, apperror.ErrInvalidVettingTransition(string(from), string(to))
	}

	s.log.Info().
		Str("candidate_id", id.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("candidate vetting advanced")
	c.VettingStatus = to
	return c, nil
}

// AddEndorsement stores a rating and refreshes the candidate's scores.
func (s *candidateService) AddEndorsement(ctx context.Context, req ports.EndorseRequest) (*domain.Candidate, error) {
	if !req.Category.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown endorsement category %q", req.Category))
	}
	if req.Rating < domain.MinEndorsementRating || req.Rating > domain.MaxEndorsementRating {
		return nil, apperror.Validation(fmt.Sprintf("rating must be between %d and %d",
			domain.MinEndorsementRating, domain.MaxEndorsementRating))
	}
	if _, err := s.GetCandidate(ctx, req.CandidateID); err != nil {
		return nil, err
	}

	e := &domain.Endorsement{
		ID:                uuid.New(),
		CandidateID:       req.CandidateID,
		EndorserAccountID: req.EndorserAccountID,
		Category:          req.Category,
		Rating:            req.Rating,
		Comment:           req.Comment,
		CreatedAt:         time.Now().UTC(),
	}
	created, err := s.endorsements.Create(ctx, e)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create endorsement: %w", err))
	}
	if !created {
		return nil, apperror.ErrDuplicateEndorsement()
	}
	return s.RecomputeScore(ctx, req.CandidateID)
}

// RecomputeScore derives credibility from the stored endorsements. It never
// touches votes or balances.
func (s *candidateService) RecomputeScore(ctx context.Context, id uuid.UUID) (*domain.Candidate, error) {
	c, err := s.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	endorsements, err := s.endorsements.ListByCandidate(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list endorsements: %w", err))
	}

	cr := domain.ComputeCredibility(endorsements)
	if err := s.candidates.UpdateScores(ctx, id, cr); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update scores: %w", err))
	}
	c.ApplyCredibility(cr)

	s.log.Debug().
		Str("candidate_id", id.String()).
		Str("overall", domain.FormatAmount(cr.Overall)).
		Int("endorsements", cr.Count).
		Msg("credibility recomputed")
	return c, nil
}
