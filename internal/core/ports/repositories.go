package ports

import (
	"context"
	"time"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Methods accepting pgx.Tx run inside the caller's unit of work. Read methods
// that take a tx also accept nil, in which case they read committed state.

// ParticipantRepository defines persistence operations for participants.
type ParticipantRepository interface {
	Create(ctx context.Context, participant *domain.Participant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Participant, error)
	GetByUsername(ctx context.Context, username string) (*domain.Participant, error)
}

// AccountRepository defines persistence operations for SUP accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// GetByIDForUpdate locks the account row until tx ends.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	// UpdateBalances writes balance, escrow and lifetime-earned if the stored
	// version still equals account.Version, then bumps account.Version.
	UpdateBalances(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	UpdateTier(ctx context.Context, tx pgx.Tx, id uuid.UUID, tier domain.VerificationTier) error
	SetActive(ctx context.Context, tx pgx.Tx, id uuid.UUID, active bool) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// TransactionRepository defines persistence operations for the append-only log.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// List returns an account's transactions newest first.
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, error)
	// ListAll returns an account's full log in append order.
	ListAll(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) ([]domain.Transaction, error)
	// SumSince returns the signed sum of txType amounts created after since.
	SumSince(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, txType domain.TransactionType, since time.Time) (decimal.Decimal, error)
	ReversalExists(ctx context.Context, tx pgx.Tx, originalID uuid.UUID) (bool, error)
}

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	AccountID uuid.UUID
	Since     *time.Time
	Limit     int
}

// IdempotencyRepository defines persistence for idempotency logs (DB layer).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	// Get returns the log for key if it was created after since.
	Get(ctx context.Context, tx pgx.Tx, key string, since time.Time) (*domain.IdempotencyLog, error)
}

// RoundRepository defines persistence operations for voting rounds.
type RoundRepository interface {
	Create(ctx context.Context, round *domain.VotingRound) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VotingRound, error)
	List(ctx context.Context) ([]domain.VotingRound, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RoundStatus) error
}

// VoteRepository defines persistence operations for cast votes.
type VoteRepository interface {
	Create(ctx context.Context, tx pgx.Tx, vote *domain.Vote) error
	CumulativeWeight(ctx context.Context, tx pgx.Tx, accountID, candidateID, roundID uuid.UUID) (int, error)
	SumWeightByCandidate(ctx context.Context, tx pgx.Tx, candidateID uuid.UUID) (int64, error)
}

// CandidateRepository defines persistence operations for candidates.
type CandidateRepository interface {
	Create(ctx context.Context, candidate *domain.Candidate) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Candidate, error)
	// GetByIDForUpdate locks the candidate row until tx ends.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Candidate, error)
	// IncrementTally adds weight and returns the new tally, locking the row until tx ends.
	IncrementTally(ctx context.Context, tx pgx.Tx, id uuid.UUID, weight int) (int64, error)
	SetTally(ctx context.Context, tx pgx.Tx, id uuid.UUID, tally int64) error
	// UpdateVetting moves from -> to and reports false if the stored status was not from.
	UpdateVetting(ctx context.Context, id uuid.UUID, from, to domain.VettingStatus) (bool, error)
	UpdateScores(ctx context.Context, id uuid.UUID, cred domain.Credibility) error
}

// EndorsementRepository defines persistence operations for endorsements.
type EndorsementRepository interface {
	// Create reports false if the endorser already rated this candidate in the category.
	Create(ctx context.Context, endorsement *domain.Endorsement) (bool, error)
	ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]domain.Endorsement, error)
}

// KYCRepository defines persistence operations for KYC submissions.
type KYCRepository interface {
	Create(ctx context.Context, submission *domain.KYCSubmission) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.KYCSubmission, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.KYCSubmission, error)
	UpdateDecision(ctx context.Context, tx pgx.Tx, submission *domain.KYCSubmission) error
}

// AuditRepository persists audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
