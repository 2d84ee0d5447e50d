package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civic-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Create inserts an idempotency log within a database transaction. An expired
// row under the same key is replaced.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error {
	query := `INSERT INTO idempotency_logs (key, transaction_id, request_hash, response_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET transaction_id = EXCLUDED.transaction_id, request_hash = EXCLUDED.request_hash,
			response_json = EXCLUDED.response_json, created_at = EXCLUDED.created_at`

	_, err := tx.Exec(ctx, query, log.Key, log.TransactionID, log.RequestHash, log.ResponseJSON, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert idempotency log: %w", err)
	}
	return nil
}

// Get fetches an idempotency log by key if it is newer than since.
func (r *IdempotencyRepo) Get(ctx context.Context, tx pgx.Tx, key string, since time.Time) (*domain.IdempotencyLog, error) {
	query := `SELECT key, transaction_id, request_hash, response_json, created_at
		FROM idempotency_logs WHERE key = $1 AND created_at > $2`

	log := &domain.IdempotencyLog{}
	err := on(r.pool, tx).QueryRow(ctx, query, key, since).Scan(
		&log.Key, &log.TransactionID, &log.RequestHash, &log.ResponseJSON, &log.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency log: %w", err)
	}
	return log, nil
}
