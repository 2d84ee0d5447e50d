package memory

import (
	"context"
	"fmt"
	"time"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func accountKey(id uuid.UUID) string { return "account:" + id.String() }

// ParticipantRepo implements ports.ParticipantRepository.
type ParticipantRepo struct {
	s *Store
}

func NewParticipantRepo(s *Store) *ParticipantRepo {
	return &ParticipantRepo{s: s}
}

func (r *ParticipantRepo) Create(_ context.Context, p *domain.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.usernames[p.Username]; taken {
		return fmt.Errorf("insert participant %q: %w", p.Username, errDuplicate)
	}
	if _, taken := r.s.participants[p.ID]; taken {
		return fmt.Errorf("insert participant %s: %w", p.ID, errDuplicate)
	}
	r.s.participants[p.ID] = *p
	r.s.usernames[p.Username] = p.ID
	return nil
}

func (r *ParticipantRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.participants[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ParticipantRepo) GetByUsername(_ context.Context, username string) (*domain.Participant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.usernames[username]
	if !ok {
		return nil, nil
	}
	p := r.s.participants[id]
	return &p, nil
}

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	s *Store
}

func NewAccountRepo(s *Store) *AccountRepo {
	return &AccountRepo{s: s}
}

func (r *AccountRepo) Create(_ context.Context, a *domain.Account) error {
	if a.Balance.IsNegative() {
		return fmt.Errorf("insert account: balance must not be negative")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.accounts[a.ID]; exists {
		return fmt.Errorf("insert account %s: %w", a.ID, errDuplicate)
	}
	r.s.accounts[a.ID] = &rowCell[domain.Account]{val: *a}
	r.s.accountOrder = append(r.s.accountOrder, a.ID)
	return nil
}

// GetByID returns committed state.
func (r *AccountRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.accounts[id]
	if !ok {
		return nil, nil
	}
	a := row.val
	return &a, nil
}

// GetByIDForUpdate blocks until the row lock is free or ctx ends.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	mt, err := unwrap(tx)
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	if mt == nil {
		return nil, fmt.Errorf("get account for update: %w", pgx.ErrTxClosed)
	}
	if _, err := r.s.lock(ctx, mt, accountKey(id)); err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.accounts[id]
	if !ok {
		return nil, nil
	}
	a := row.view(mt)
	return &a, nil
}

// UpdateBalances writes the balance fields if the version still matches.
func (r *AccountRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	if a.Balance.IsNegative() || a.CashEscrow.IsNegative() {
		return fmt.Errorf("update account balances: balances must not be negative")
	}
	return r.update(ctx, tx, a.ID, func(stored *domain.Account) error {
		if stored.Version != a.Version {
			return fmt.Errorf("account %s at version %d: %w", a.ID, a.Version, ErrVersionConflict)
		}
		stored.Balance = a.Balance
		stored.CashEscrow = a.CashEscrow
		stored.LifetimeEarned = a.LifetimeEarned
		stored.Version++
		a.Version = stored.Version
		return nil
	})
}

func (r *AccountRepo) UpdateTier(ctx context.Context, tx pgx.Tx, id uuid.UUID, tier domain.VerificationTier) error {
	return r.update(ctx, tx, id, func(stored *domain.Account) error {
		stored.Tier = tier
		return nil
	})
}

func (r *AccountRepo) SetActive(ctx context.Context, tx pgx.Tx, id uuid.UUID, active bool) error {
	return r.update(ctx, tx, id, func(stored *domain.Account) error {
		stored.Active = active
		return nil
	})
}

func (r *AccountRepo) update(ctx context.Context, tx pgx.Tx, id uuid.UUID, fn func(*domain.Account) error) error {
	mt, err := unwrap(tx)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	release, err := r.s.lock(ctx, mt, accountKey(id))
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, errNotFound)
	}

	// Validate against the visible version before staging anything.
	next := row.view(mt)
	if err := fn(&next); err != nil {
		return err
	}
	row.write(mt, func(stored *domain.Account) {
		*stored = next
		stored.UpdatedAt = time.Now().UTC()
	})
	return nil
}

// ListIDs returns every account id, oldest first.
func (r *AccountRepo) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]uuid.UUID(nil), r.s.accountOrder...), nil
}
