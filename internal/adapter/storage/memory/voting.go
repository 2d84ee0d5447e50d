package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func candidateKey(id uuid.UUID) string { return "candidate:" + id.String() }

// RoundRepo implements ports.RoundRepository.
type RoundRepo struct {
	s *Store
}

func NewRoundRepo(s *Store) *RoundRepo {
	return &RoundRepo{s: s}
}

func (r *RoundRepo) Create(_ context.Context, vr *domain.VotingRound) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.rounds[vr.ID]; exists {
		return fmt.Errorf("insert voting round %s: %w", vr.ID, errDuplicate)
	}
	r.s.rounds[vr.ID] = *vr
	return nil
}

func (r *RoundRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.VotingRound, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vr, ok := r.s.rounds[id]
	if !ok {
		return nil, nil
	}
	return &vr, nil
}

// List returns all rounds, most recent start first.
func (r *RoundRepo) List(_ context.Context) ([]domain.VotingRound, error) {
	r.s.mu.Lock()
	out := make([]domain.VotingRound, 0, len(r.s.rounds))
	for _, vr := range r.s.rounds {
		out = append(out, vr)
	}
	r.s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.After(out[j].StartsAt) })
	return out, nil
}

// UpdateStatus never rewrites an ENDED round.
func (r *RoundRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.RoundStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vr, ok := r.s.rounds[id]
	if !ok || vr.Status == domain.RoundStatusEnded {
		return nil
	}
	vr.Status = status
	r.s.rounds[id] = vr
	return nil
}

// CandidateRepo implements ports.CandidateRepository.
type CandidateRepo struct {
	s *Store
}

func NewCandidateRepo(s *Store) *CandidateRepo {
	return &CandidateRepo{s: s}
}

func (r *CandidateRepo) Create(_ context.Context, c *domain.Candidate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.candidates[c.ID]; exists {
		return fmt.Errorf("insert candidate %s: %w", c.ID, errDuplicate)
	}
	r.s.candidates[c.ID] = &rowCell[domain.Candidate]{val: *c}
	return nil
}

func (r *CandidateRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Candidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.candidates[id]
	if !ok {
		return nil, nil
	}
	c := row.val
	return &c, nil
}

// GetByIDForUpdate blocks until the row lock is free or ctx ends.
func (r *CandidateRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Candidate, error) {
	mt, err := unwrap(tx)
	if err != nil {
		return nil, fmt.Errorf("get candidate for update: %w", err)
	}
	if mt == nil {
		return nil, fmt.Errorf("get candidate for update: %w", pgx.ErrTxClosed)
	}
	if _, err := r.s.lock(ctx, mt, candidateKey(id)); err != nil {
		return nil, fmt.Errorf("get candidate for update: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.candidates[id]
	if !ok {
		return nil, nil
	}
	c := row.view(mt)
	return &c, nil
}

// IncrementTally holds the candidate row lock until tx ends.
func (r *CandidateRepo) IncrementTally(ctx context.Context, tx pgx.Tx, id uuid.UUID, weight int) (int64, error) {
	var tally int64
	err := r.update(ctx, tx, id, func(c *domain.Candidate) bool {
		c.VoteTally += int64(weight)
		tally = c.VoteTally
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("increment candidate tally: %w", err)
	}
	return tally, nil
}

func (r *CandidateRepo) SetTally(ctx context.Context, tx pgx.Tx, id uuid.UUID, tally int64) error {
	return r.update(ctx, tx, id, func(c *domain.Candidate) bool {
		c.VoteTally = tally
		return true
	})
}

// UpdateVetting is a compare-and-set on the vetting status.
func (r *CandidateRepo) UpdateVetting(ctx context.Context, id uuid.UUID, from, to domain.VettingStatus) (bool, error) {
	moved := false
	err := r.update(ctx, nil, id, func(c *domain.Candidate) bool {
		if c.VettingStatus != from {
			return false
		}
		c.VettingStatus = to
		moved = true
		return true
	})
	return moved, err
}

func (r *CandidateRepo) UpdateScores(ctx context.Context, id uuid.UUID, cred domain.Credibility) error {
	return r.update(ctx, nil, id, func(c *domain.Candidate) bool {
		c.ApplyCredibility(cred)
		return true
	})
}

// update applies fn under the row lock; fn returns false to leave the row alone.
func (r *CandidateRepo) update(ctx context.Context, tx pgx.Tx, id uuid.UUID, fn func(*domain.Candidate) bool) error {
	mt, err := unwrap(tx)
	if err != nil {
		return err
	}
	release, err := r.s.lock(ctx, mt, candidateKey(id))
	if err != nil {
		return err
	}
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.candidates[id]
	if !ok {
		return fmt.Errorf("candidate %s: %w", id, errNotFound)
	}
	next := row.view(mt)
	if !fn(&next) {
		return nil
	}
	row.write(mt, func(c *domain.Candidate) {
		*c = next
		c.UpdatedAt = time.Now().UTC()
	})
	return nil
}

// VoteRepo implements ports.VoteRepository.
type VoteRepo struct {
	s *Store
}

func NewVoteRepo(s *Store) *VoteRepo {
	return &VoteRepo{s: s}
}

func (r *VoteRepo) Create(_ context.Context, tx pgx.Tx, v *domain.Vote) error {
	mt, err := unwrap(tx)
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	if v.Weight < 1 {
		return fmt.Errorf("insert vote: weight must be positive")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e := &entry[domain.Vote]{val: *v}
	r.s.votes = append(r.s.votes, e)
	appendEntry(mt, e, nil)
	return nil
}

// CumulativeWeight includes votes written earlier in tx.
func (r *VoteRepo) CumulativeWeight(_ context.Context, tx pgx.Tx, accountID, candidateID, roundID uuid.UUID) (int, error) {
	mt, err := unwrap(tx)
	if err != nil {
		return 0, fmt.Errorf("cumulative vote weight: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := 0
	for _, e := range r.s.votes {
		v := e.val
		if e.visible(mt) && v.AccountID == accountID && v.CandidateID == candidateID && v.RoundID == roundID {
			total += v.Weight
		}
	}
	return total, nil
}

// SumWeightByCandidate includes votes written earlier in tx.
func (r *VoteRepo) SumWeightByCandidate(_ context.Context, tx pgx.Tx, candidateID uuid.UUID) (int64, error) {
	mt, err := unwrap(tx)
	if err != nil {
		return 0, fmt.Errorf("sum candidate votes: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var total int64
	for _, e := range r.s.votes {
		if e.visible(mt) && e.val.CandidateID == candidateID {
			total += int64(e.val.Weight)
		}
	}
	return total, nil
}

// EndorsementRepo implements ports.EndorsementRepository.
type EndorsementRepo struct {
	s *Store
}

func NewEndorsementRepo(s *Store) *EndorsementRepo {
	return &EndorsementRepo{s: s}
}

// Create reports false when the endorser already rated the candidate in the category.
func (r *EndorsementRepo) Create(_ context.Context, e *domain.Endorsement) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.endorsements {
		if existing.EndorserAccountID == e.EndorserAccountID &&
			existing.CandidateID == e.CandidateID &&
			existing.Category == e.Category {
			return false, nil
		}
	}
	r.s.endorsements = append(r.s.endorsements, *e)
	return true, nil
}

// ListByCandidate returns endorsements oldest first.
func (r *EndorsementRepo) ListByCandidate(_ context.Context, candidateID uuid.UUID) ([]domain.Endorsement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Endorsement
	for _, e := range r.s.endorsements {
		if e.CandidateID == candidateID {
			out = append(out, e)
		}
	}
	return out, nil
}
