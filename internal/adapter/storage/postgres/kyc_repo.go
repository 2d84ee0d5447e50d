package postgres

import (
	"context"
	"errors"
	"fmt"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const kycColumns = `id, account_id, requested_tier, document_type, document_ref_enc, status,
		review_note, created_at, decided_at`

// KYCRepo implements ports.KYCRepository.
type KYCRepo struct {
	pool Pool
}

// NewKYCRepo creates a new KYCRepo.
func NewKYCRepo(pool Pool) *KYCRepo {
	return &KYCRepo{pool: pool}
}

// Create inserts a pending submission.
func (r *KYCRepo) Create(ctx context.Context, k *domain.KYCSubmission) error {
	query := `INSERT INTO kyc_submissions (` + kycColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		k.ID, k.AccountID, k.RequestedTier, k.DocumentType, k.DocumentRefEnc, k.Status,
		k.ReviewNote, k.CreatedAt, k.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("insert kyc submission: %w", err)
	}
	return nil
}

// GetByID fetches a submission without locking.
func (r *KYCRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.KYCSubmission, error) {
	return r.get(ctx, r.pool, `SELECT `+kycColumns+` FROM kyc_submissions WHERE id = $1`, id)
}

// GetByIDForUpdate locks the submission row so a decision is applied once.
func (r *KYCRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.KYCSubmission, error) {
	return r.get(ctx, tx, `SELECT `+kycColumns+` FROM kyc_submissions WHERE id = $1 FOR UPDATE`, id)
}

// UpdateDecision records the provider's verdict.
func (r *KYCRepo) UpdateDecision(ctx context.Context, tx pgx.Tx, k *domain.KYCSubmission) error {
	query := `UPDATE kyc_submissions SET status = $1, review_note = $2, decided_at = $3 WHERE id = $4`

	tag, err := tx.Exec(ctx, query, k.Status, k.ReviewNote, k.DecidedAt, k.ID)
	if err != nil {
		return fmt.Errorf("update kyc decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("kyc submission not found: %s", k.ID)
	}
	return nil
}

func (r *KYCRepo) get(ctx context.Context, q querier, query string, id uuid.UUID) (*domain.KYCSubmission, error) {
	k := &domain.KYCSubmission{}
	err := q.QueryRow(ctx, query, id).Scan(
		&k.ID, &k.AccountID, &k.RequestedTier, &k.DocumentType, &k.DocumentRefEnc, &k.Status,
		&k.ReviewNote, &k.CreatedAt, &k.DecidedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get kyc submission: %w", err)
	}
	return k, nil
}
