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
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// VotingServiceImpl implements ports.VotingService on top of the intent
// processor: a vote is a VOTE debit whose effect appends the vote row and
// bumps the candidate tally in the same unit of work.
type VotingServiceImpl struct {
	rounds     ports.RoundRepository
	candidates ports.CandidateRepository
	votes      ports.VoteRepository
	processor  ports.IntentProcessor
	transactor ports.DBTransactor
	metrics    ports.LedgerMetrics
	log        zerolog.Logger
}

// NewVotingService creates a new VotingServiceImpl. metrics may be nil.
func NewVotingService(
	rounds ports.RoundRepository,
	candidates ports.CandidateRepository,
	votes ports.VoteRepository,
	processor ports.IntentProcessor,
	transactor ports.DBTransactor,
	metrics ports.LedgerMetrics,
	log zerolog.Logger,
) *VotingServiceImpl {
	return &VotingServiceImpl{
		rounds:     rounds,
		candidates: candidates,
		votes:      votes,
		processor:  processor,
		transactor: transactor,
		metrics:    metrics,
		log:        log,
	}
}

// CastVote debits weight × token cost and records the vote.
func (s *VotingServiceImpl) CastVote(ctx context.Context, req ports.CastVoteRequest) (*ports.VoteResult, error) {
	round, err := s.rounds.GetByID(ctx, req.RoundID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get round: %w", err))
	}
	if round == nil {
		return nil, apperror.ErrNotFound("voting round")
	}

	intent := ports.Intent{
		AccountID:      req.AccountID,
		Type:           domain.TransactionTypeVote,
		Amount:         round.VoteCost(req.Weight),
		IdempotencyKey: req.IdempotencyKey,
		Fingerprint:    fmt.Sprintf("candidate=%s|round=%s|weight=%d", req.CandidateID, req.RoundID, req.Weight),
	}

	// A retried vote gets its original answer even after the round has closed.
	if req.IdempotencyKey != "" {
		prior, err := s.processor.Replay(ctx, intent)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return toVoteResult(prior), nil
		}
	}

	if round.StatusAt(time.Now().UTC()) != domain.RoundStatusActive {
		return nil, apperror.ErrRoundNotActive()
	}

	candidate, err := s.candidates.GetByID(ctx, req.CandidateID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get candidate: %w", err))
	}
	if candidate == nil {
		return nil, apperror.ErrNotFound("candidate")
	}
	if !candidate.VettingStatus.CanReceiveVotes() {
		return nil, apperror.ErrCandidateNotQualified()
	}

	if req.Weight < 1 || req.Weight > round.MaxVotesPerUser {
		return nil, apperror.ErrInvalidVoteWeight(
			fmt.Sprintf("weight must be between 1 and %d", round.MaxVotesPerUser))
	}

	intent.Guard = func(ctx context.Context, tx pgx.Tx, account *domain.Account) error {
		// The round may have closed while this vote waited for the account lock.
		if round.StatusAt(time.Now().UTC()) != domain.RoundStatusActive {
			return apperror.ErrRoundNotActive()
		}
		cast, err := s.votes.CumulativeWeight(ctx, tx, account.ID, req.CandidateID, req.RoundID)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("cumulative weight: %w", err))
		}
		if cast+req.Weight > round.MaxVotesPerUser {
			return apperror.ErrInvalidVoteWeight(fmt.Sprintf(
				"%d already cast for this candidate; %d more would exceed the round maximum of %d",
				cast, req.Weight, round.MaxVotesPerUser))
		}
		return nil
	}

	intent.Effect = func(ctx context.Context, tx pgx.Tx, txn *domain.Transaction, result *ports.IntentResult) error {
		vote := &domain.Vote{
			ID:            uuid.New(),
			AccountID:     req.AccountID,
			CandidateID:   req.CandidateID,
			RoundID:       req.RoundID,
			Weight:        req.Weight,
			TransactionID: txn.ID,
			CreatedAt:     txn.CreatedAt,
		}
		if err := s.votes.Create(ctx, tx, vote); err != nil {
			return apperror.InternalError(fmt.Errorf("create vote: %w", err))
		}
		tally, err := s.candidates.IncrementTally(ctx, tx, req.CandidateID, req.Weight)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("increment tally: %w", err))
		}
		result.VoteID = &vote.ID
		result.CandidateTally = &tally
		return nil
	}

	res, err := s.processor.Process(ctx, intent)
	if err != nil {
		return nil, err
	}

	if !res.Replayed {
		if s.metrics != nil {
			s.metrics.AddVoteWeight(req.Weight)
		}
		s.log.Info().
			Str("account_id", req.AccountID.String()).
			Str("candidate_id", req.CandidateID.String()).
			Str("round_id", req.RoundID.String()).
			Int("weight", req.Weight).
			Msg("vote cast")
	}
	return toVoteResult(res), nil
}

func toVoteResult(res *ports.IntentResult) *ports.VoteResult {
	out := &ports.VoteResult{
		TransactionID: res.Transaction.ID,
		VoteID:        res.VoteID,
		NewBalance:    res.NewBalance,
		Replayed:      res.Replayed,
	}
	if res.CandidateTally != nil {
		out.CandidateTally = *res.CandidateTally
	}
	return out
}

// CreateRound validates and stores a round. Its status is derived from the clock.
func (s *VotingServiceImpl) CreateRound(ctx context.Context, req ports.CreateRoundRequest) (*domain.VotingRound, error) {
	now := time.Now().UTC()
	round := &domain.VotingRound{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(req.Name),
		TokenCost:       req.TokenCost,
		MaxVotesPerUser: req.MaxVotesPerUser,
		StartsAt:        req.StartsAt.UTC(),
		EndsAt:          req.EndsAt.UTC(),
		CreatedAt:       now,
	}
	if reason := round.Validate(); reason != "" {
		return nil, apperror.ErrInvalidRound(reason)
	}
	round.Status = round.StatusAt(now)

	if err := s.rounds.Create(ctx, round); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create round: %w", err))
	}
	s.log.Info().Str("round_id", round.ID.String()).Str("status", string(round.Status)).Msg("voting round created")
	return round, nil
}

// GetRound returns a round with its status derived from the clock.
func (s *VotingServiceImpl) GetRound(ctx context.Context, id uuid.UUID) (*domain.VotingRound, error) {
	round, err := s.rounds.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get round: %w", err))
	}
	if round == nil {
		return nil, apperror.ErrNotFound("voting round")
	}
	round.Status = round.StatusAt(time.Now().UTC())
	return round, nil
}

func (s *VotingServiceImpl) ListRounds(ctx context.Context) ([]domain.VotingRound, error) {
	rounds, err := s.rounds.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list rounds: %w", err))
	}
	now := time.Now().UTC()
	for i := range rounds {
		rounds[i].Status = rounds[i].StatusAt(now)
	}
	return rounds, nil
}

// SweepRounds persists derived statuses and returns how many rounds moved.
func (s *VotingServiceImpl) SweepRounds(ctx context.Context) (int, error) {
	rounds, err := s.rounds.List(ctx)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("list rounds: %w", err))
	}

	now := time.Now().UTC()
	moved := 0
	for _, r := range rounds {
		next := r.StatusAt(now)
		if next == r.Status {
			continue
		}
		if err := s.rounds.UpdateStatus(ctx, r.ID, next); err != nil {
			return moved, apperror.InternalError(fmt.Errorf("update round %s: %w", r.ID, err))
		}
		s.log.Info().
			Str("round_id", r.ID.String()).
			Str("from", string(r.Status)).
			Str("to", string(next)).
			Msg("voting round status advanced")
		moved++
	}
	return moved, nil
}

// RecomputeTally rebuilds a candidate's tally from the votes table. The
// candidate row stays locked from the read through the rewrite, so votes
// committing meanwhile wait for it and land on top of the recount.
func (s *VotingServiceImpl) RecomputeTally(ctx context.Context, candidateID uuid.UUID) (*ports.TallyReconciliation, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	candidate, err := s.candidates.GetByIDForUpdate(ctx, dbTx, candidateID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock candidate: %w", err))
	}
	if candidate == nil {
		return nil, apperror.ErrNotFound("candidate")
	}

	total, err := s.votes.SumWeightByCandidate(ctx, dbTx, candidateID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum votes: %w", err))
	}

	out := &ports.TallyReconciliation{
		CandidateID: candidateID,
		Cached:      candidate.VoteTally,
		Recomputed:  total,
		Drift:       candidate.VoteTally - total,
	}
	if out.Drift != 0 {
		s.log.Warn().
			Str("candidate_id", candidateID.String()).
			Int64("cached", out.Cached).
			Int64("recomputed", out.Recomputed).
			Msg("candidate tally drifted, rewriting")
		if err := s.candidates.SetTally(ctx, dbTx, candidateID, total); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("set tally: %w", err))
		}
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return out, nil
}
