package memory

import (
	"context"
	"fmt"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func kycKey(id uuid.UUID) string { return "kyc:" + id.String() }

// KYCRepo implements ports.KYCRepository.
type KYCRepo struct {
	s *Store
}

func NewKYCRepo(s *Store) *KYCRepo {
	return &KYCRepo{s: s}
}

func (r *KYCRepo) Create(_ context.Context, sub *domain.KYCSubmission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.kyc[sub.ID]; exists {
		return fmt.Errorf("insert kyc submission %s: %w", sub.ID, errDuplicate)
	}
	r.s.kyc[sub.ID] = &rowCell[domain.KYCSubmission]{val: *sub}
	return nil
}

func (r *KYCRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.KYCSubmission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.kyc[id]
	if !ok {
		return nil, nil
	}
	sub := row.val
	return &sub, nil
}

func (r *KYCRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.KYCSubmission, error) {
	mt, err := unwrap(tx)
	if err != nil {
		return nil, fmt.Errorf("get kyc submission for update: %w", err)
	}
	if mt == nil {
		return nil, fmt.Errorf("get kyc submission for update: %w", pgx.ErrTxClosed)
	}
	if _, err := r.s.lock(ctx, mt, kycKey(id)); err != nil {
		return nil, fmt.Errorf("get kyc submission for update: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.kyc[id]
	if !ok {
		return nil, nil
	}
	sub := row.view(mt)
	return &sub, nil
}

func (r *KYCRepo) UpdateDecision(ctx context.Context, tx pgx.Tx, sub *domain.KYCSubmission) error {
	mt, err := unwrap(tx)
	if err != nil {
		return fmt.Errorf("update kyc decision: %w", err)
	}
	release, err := r.s.lock(ctx, mt, kycKey(sub.ID))
	if err != nil {
		return fmt.Errorf("update kyc decision: %w", err)
	}
	defer release()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.kyc[sub.ID]
	if !ok {
		return fmt.Errorf("kyc submission %s: %w", sub.ID, errNotFound)
	}
	row.write(mt, func(stored *domain.KYCSubmission) {
		stored.Status = sub.Status
		stored.ReviewNote = sub.ReviewNote
		stored.DecidedAt = sub.DecidedAt
	})
	return nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct {
	s *Store
}

func NewAuditRepo(s *Store) *AuditRepo {
	return &AuditRepo{s: s}
}

func (r *AuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, *log)
	return nil
}

// Entries returns a copy of the audit trail, oldest first.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.AuditLog(nil), r.s.audits...)
}
