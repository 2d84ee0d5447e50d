package postgres

import (
	"context"
	"fmt"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VoteRepo implements ports.VoteRepository.
type VoteRepo struct {
	pool Pool
}

// NewVoteRepo creates a new VoteRepo.
func NewVoteRepo(pool Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// Create appends a vote within the debit's database transaction.
func (r *VoteRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Vote) error {
	query := `INSERT INTO votes (id, account_id, candidate_id, round_id, weight, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		v.ID, v.AccountID, v.CandidateID, v.RoundID, v.Weight, v.TransactionID, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

// CumulativeWeight sums the weight already cast by an account for a
// candidate in a round.
func (r *VoteRepo) CumulativeWeight(ctx context.Context, tx pgx.Tx, accountID, candidateID, roundID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(SUM(weight), 0) FROM votes
		WHERE account_id = $1 AND candidate_id = $2 AND round_id = $3`

	var total int
	if err := on(r.pool, tx).QueryRow(ctx, query, accountID, candidateID, roundID).Scan(&total); err != nil {
		return 0, fmt.Errorf("cumulative vote weight: %w", err)
	}
	return total, nil
}

// SumWeightByCandidate recomputes a candidate's tally from the votes table.
func (r *VoteRepo) SumWeightByCandidate(ctx context.Context, tx pgx.Tx, candidateID uuid.UUID) (int64, error) {
	var total int64
	err := on(r.pool, tx).QueryRow(ctx, `SELECT COALESCE(SUM(weight), 0) FROM votes WHERE candidate_id = $1`, candidateID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum candidate votes: %w", err)
	}
	return total, nil
}
