package postgres

import (
	"context"
	"fmt"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// EndorsementRepo implements ports.EndorsementRepository.
type EndorsementRepo struct {
	pool Pool
}

// NewEndorsementRepo creates a new EndorsementRepo.
func NewEndorsementRepo(pool Pool) *EndorsementRepo {
	return &EndorsementRepo{pool: pool}
}

// Create inserts an endorsement. The unique (endorser, candidate, category)
// index turns a repeat into a no-op reported as false.
func (r *EndorsementRepo) Create(ctx context.Context, e *domain.Endorsement) (bool, error) {
	query := `INSERT INTO endorsements (id, candidate_id, endorser_account_id, category, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (endorser_account_id, candidate_id, category) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		e.ID, e.CandidateID, e.EndorserAccountID, e.Category, e.Rating, e.Comment, e.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert endorsement: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByCandidate returns every endorsement of a candidate.
func (r *EndorsementRepo) ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]domain.Endorsement, error) {
	query := `SELECT id, candidate_id, endorser_account_id, category, rating, comment, created_at
		FROM endorsements WHERE candidate_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list endorsements: %w", err)
	}
	defer rows.Close()

	var out []domain.Endorsement
	for rows.Next() {
		var e domain.Endorsement
		if err := rows.Scan(&e.ID, &e.CandidateID, &e.EndorserAccountID, &e.Category, &e.Rating, &e.Comment, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan endorsement: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate endorsements: %w", err)
	}
	return out, nil
}
