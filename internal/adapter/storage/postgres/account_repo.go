package postgres

import (
	"context"
	"errors"
	"fmt"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, participant_id, balance, cash_escrow, tier, lifetime_earned,
		version, active, created_at, updated_at`

// ErrVersionConflict is returned when an account row changed under a writer
// that did not hold the row lock.
var ErrVersionConflict = errors.New("account version conflict")

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.ParticipantID, a.Balance, a.CashEscrow, a.Tier, a.LifetimeEarned,
		a.Version, a.Active, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account without locking.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

// GetByIDForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	a, err := scanAccount(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// UpdateBalances writes the cached balance fields guarded by version.
func (r *AccountRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `UPDATE accounts
		SET balance = $1, cash_escrow = $2, lifetime_earned = $3, version = version + 1, updated_at = NOW()
		WHERE id = $4 AND version = $5`

	tag, err := tx.Exec(ctx, query, a.Balance, a.CashEscrow, a.LifetimeEarned, a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("update account balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s at version %d: %w", a.ID, a.Version, ErrVersionConflict)
	}
	a.Version++
	return nil
}

// UpdateTier sets the verification tier.
func (r *AccountRepo) UpdateTier(ctx context.Context, tx pgx.Tx, id uuid.UUID, tier domain.VerificationTier) error {
	tag, err := on(r.pool, tx).Exec(ctx, `UPDATE accounts SET tier = $1, updated_at = NOW() WHERE id = $2`, tier, id)
	if err != nil {
		return fmt.Errorf("update account tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// SetActive toggles the soft-deactivation flag.
func (r *AccountRepo) SetActive(ctx context.Context, tx pgx.Tx, id uuid.UUID, active bool) error {
	tag, err := on(r.pool, tx).Exec(ctx, `UPDATE accounts SET active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("set account active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// ListIDs returns every account id, oldest first.
func (r *AccountRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list account ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanAccount returns nil, nil when the row does not exist.
func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.ParticipantID, &a.Balance, &a.CashEscrow, &a.Tier, &a.LifetimeEarned,
		&a.Version, &a.Active, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}
