package postgres

import (
	"context"
	"errors"
	"fmt"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ParticipantRepo implements ports.ParticipantRepository.
type ParticipantRepo struct {
	pool Pool
}

// NewParticipantRepo creates a new ParticipantRepo.
func NewParticipantRepo(pool Pool) *ParticipantRepo {
	return &ParticipantRepo{pool: pool}
}

// Create inserts a new participant.
func (r *ParticipantRepo) Create(ctx context.Context, p *domain.Participant) error {
	query := `INSERT INTO participants (id, username, password_hash, display_name, role, account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Username, p.PasswordHash, p.DisplayName, p.Role, p.AccountID, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// GetByID fetches a participant by UUID.
func (r *ParticipantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Participant, error) {
	query := `SELECT id, username, password_hash, display_name, role, account_id, created_at
		FROM participants WHERE id = $1`

	return r.scanParticipant(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches a participant by username.
func (r *ParticipantRepo) GetByUsername(ctx context.Context, username string) (*domain.Participant, error) {
	query := `SELECT id, username, password_hash, display_name, role, account_id, created_at
		FROM participants WHERE username = $1`

	return r.scanParticipant(r.pool.QueryRow(ctx, query, username))
}

func (r *ParticipantRepo) scanParticipant(row pgx.Row) (*domain.Participant, error) {
	p := &domain.Participant{}
	err := row.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.DisplayName, &p.Role, &p.AccountID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan participant: %w", err)
	}
	return p, nil
}
