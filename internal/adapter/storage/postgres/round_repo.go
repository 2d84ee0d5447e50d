package postgres

import (
	"context"
	"errors"
	"fmt"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const roundColumns = `id, name, token_cost, max_votes_per_user, starts_at, ends_at, status, created_at`

// RoundRepo implements ports.RoundRepository.
type RoundRepo struct {
	pool Pool
}

// NewRoundRepo creates a new RoundRepo.
func NewRoundRepo(pool Pool) *RoundRepo {
	return &RoundRepo{pool: pool}
}

// Create inserts a voting round.
func (r *RoundRepo) Create(ctx context.Context, vr *domain.VotingRound) error {
	query := `INSERT INTO voting_rounds (` + roundColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		vr.ID, vr.Name, vr.TokenCost, vr.MaxVotesPerUser, vr.StartsAt, vr.EndsAt, vr.Status, vr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert voting round: %w", err)
	}
	return nil
}

// GetByID fetches a round by UUID.
func (r *RoundRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.VotingRound, error) {
	query := `SELECT ` + roundColumns + ` FROM voting_rounds WHERE id = $1`

	vr := &domain.VotingRound{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&vr.ID, &vr.Name, &vr.TokenCost, &vr.MaxVotesPerUser, &vr.StartsAt, &vr.EndsAt, &vr.Status, &vr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voting round: %w", err)
	}
	return vr, nil
}

// List returns all rounds, most recent start first.
func (r *RoundRepo) List(ctx context.Context) ([]domain.VotingRound, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roundColumns+` FROM voting_rounds ORDER BY starts_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list voting rounds: %w", err)
	}
	defer rows.Close()

	rounds := []domain.VotingRound{}
	for rows.Next() {
		var vr domain.VotingRound
		if err := rows.Scan(
			&vr.ID, &vr.Name, &vr.TokenCost, &vr.MaxVotesPerUser, &vr.StartsAt, &vr.EndsAt, &vr.Status, &vr.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan voting round: %w", err)
		}
		rounds = append(rounds, vr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voting rounds: %w", err)
	}
	return rounds, nil
}

// UpdateStatus persists a derived status. ENDED rows are never rewritten.
func (r *RoundRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RoundStatus) error {
	query := `UPDATE voting_rounds SET status = $1 WHERE id = $2 AND status <> 'ENDED'`

	if _, err := r.pool.Exec(ctx, query, status, id); err != nil {
		return fmt.Errorf("update voting round status: %w", err)
	}
	return nil
}
