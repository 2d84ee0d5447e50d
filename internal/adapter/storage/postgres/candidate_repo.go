package postgres

import (
	"context"
	"errors"
	"fmt"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const candidateColumns = `id, name, vote_tally, endorsement_count, integrity, competence, commitment,
		overall_score, vetting_status, created_at, updated_at`

// CandidateRepo implements ports.CandidateRepository.
type CandidateRepo struct {
	pool Pool
}

// NewCandidateRepo creates a new CandidateRepo.
func NewCandidateRepo(pool Pool) *CandidateRepo {
	return &CandidateRepo{pool: pool}
}

// Create inserts a candidate.
func (r *CandidateRepo) Create(ctx context.Context, c *domain.Candidate) error {
	query := `INSERT INTO candidates (` + candidateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.VoteTally, c.EndorsementCount, c.Integrity, c.Competence, c.Commitment,
		c.OverallScore, c.VettingStatus, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

// GetByID fetches a candidate by UUID.
func (r *CandidateRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`

	c := &domain.Candidate{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.VoteTally, &c.EndorsementCount, &c.Integrity, &c.Competence, &c.Commitment,
		&c.OverallScore, &c.VettingStatus, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

// GetByIDForUpdate fetches a candidate and locks its row until tx ends.
func (r *CandidateRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1 FOR UPDATE`

	c := &domain.Candidate{}
	err := tx.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.VoteTally, &c.EndorsementCount, &c.Integrity, &c.Competence, &c.Commitment,
		&c.OverallScore, &c.VettingStatus, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get candidate for update: %w", err)
	}
	return c, nil
}

// IncrementTally adds weight inside the vote's database transaction.
func (r *CandidateRepo) IncrementTally(ctx context.Context, tx pgx.Tx, id uuid.UUID, weight int) (int64, error) {
	query := `UPDATE candidates SET vote_tally = vote_tally + $1, updated_at = NOW()
		WHERE id = $2 RETURNING vote_tally`

	var tally int64
	if err := tx.QueryRow(ctx, query, weight, id).Scan(&tally); err != nil {
		return 0, fmt.Errorf("increment candidate tally: %w", err)
	}
	return tally, nil
}

// SetTally overwrites the cached tally with a recomputed value.
func (r *CandidateRepo) SetTally(ctx context.Context, tx pgx.Tx, id uuid.UUID, tally int64) error {
	if _, err := on(r.pool, tx).Exec(ctx, `UPDATE candidates SET vote_tally = $1, updated_at = NOW() WHERE id = $2`, tally, id); err != nil {
		return fmt.Errorf("set candidate tally: %w", err)
	}
	return nil
}

// UpdateVetting is a compare-and-set on vetting_status.
func (r *CandidateRepo) UpdateVetting(ctx context.Context, id uuid.UUID, from, to domain.VettingStatus) (bool, error) {
	query := `UPDATE candidates SET vetting_status = $1, updated_at = NOW()
		WHERE id = $2 AND vetting_status = $3`

	tag, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("update candidate vetting: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateScores persists recomputed credibility scores.
func (r *CandidateRepo) UpdateScores(ctx context.Context, id uuid.UUID, cr domain.Credibility) error {
	query := `UPDATE candidates
		SET integrity = $1, competence = $2, commitment = $3, overall_score = $4, endorsement_count = $5, updated_at = NOW()
		WHERE id = $6`

	if _, err := r.pool.Exec(ctx, query, cr.Integrity, cr.Competence, cr.Commitment, cr.Overall, cr.Count, id); err != nil {
		return fmt.Errorf("update candidate scores: %w", err)
	}
	return nil
}
