package ports

import (
	"context"
	"time"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(participantID, accountID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	ParticipantID uuid.UUID
	AccountID     uuid.UUID
	Role          domain.Role
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, clientKey string, nonce string, ttl time.Duration) (bool, error)
}

// Scopes a service client may hold.
const (
	ScopeIntents = "intents"
	ScopeKYC     = "kyc"
)

// ServiceClient is an HMAC-authenticated caller such as the task engine.
type ServiceClient struct {
	Name      string
	AccessKey string
	Secret    string
	Scopes    []string
}

// HasScope reports whether the client may call endpoints guarded by scope.
func (c *ServiceClient) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ClientRegistry resolves service clients by access key.
type ClientRegistry interface {
	Lookup(accessKey string) (*ServiceClient, bool)
}

// LedgerMetrics records processor and voting outcomes.
type LedgerMetrics interface {
	ObserveIntent(txType domain.TransactionType, outcome string, elapsed time.Duration)
	IncReplay()
	AddVoteWeight(weight int)
}

// --- Service Ports (Business Logic) ---

// GuardFunc runs inside the unit of work with the issuing account locked,
// before any write. Returning an error aborts the intent.
type GuardFunc func(ctx context.Context, tx pgx.Tx, account *domain.Account) error

// EffectFunc runs inside the unit of work after the ledger entry is written.
// It may enrich result. Returning an error rolls everything back.
type EffectFunc func(ctx context.Context, tx pgx.Tx, txn *domain.Transaction, result *IntentResult) error

// Intent is a request to move SUP on one account.
type Intent struct {
	AccountID      uuid.UUID
	Type           domain.TransactionType
	Amount         decimal.Decimal // unsigned; the processor applies the sign
	Reference      *string
	CounterpartyID *uuid.UUID // TRANSFER destination
	IdempotencyKey string     // client key; empty disables replay protection
	Fingerprint    string     // extra request fields that must match on replay
	Guard          GuardFunc
	Effect         EffectFunc
}

// IntentResult is what a caller gets back, and what replays return.
type IntentResult struct {
	Transaction    domain.Transaction `json:"transaction"`
	NewBalance     decimal.Decimal    `json:"new_balance"`
	CandidateTally *int64             `json:"candidate_tally,omitempty"`
	VoteID         *uuid.UUID         `json:"vote_id,omitempty"`
	Replayed       bool               `json:"-"`
}

// IntentProcessor is the single entry point that mutates balances.
type IntentProcessor interface {
	Process(ctx context.Context, intent Intent) (*IntentResult, error)
	// Replay returns a stored result for a previously processed intent, or nil.
	Replay(ctx context.Context, intent Intent) (*IntentResult, error)
	Reverse(ctx context.Context, req ReverseRequest) (*IntentResult, error)
}

// ReverseRequest asks for a compensating entry.
type ReverseRequest struct {
	TransactionID uuid.UUID
	Reason        string
}

// TierDecision is the outcome of a ceiling check.
type TierDecision struct {
	Allowed   bool            `json:"allowed"`
	Reason    string          `json:"reason,omitempty"`
	Tier      string          `json:"tier"`
	Ceiling   decimal.Decimal `json:"ceiling"`
	Used      decimal.Decimal `json:"used"`
	Remaining decimal.Decimal `json:"remaining"`
}

// TierGate answers ceiling checks inside the caller's unit of work.
type TierGate interface {
	CheckWithdrawal(ctx context.Context, tx pgx.Tx, account *domain.Account, amount decimal.Decimal) (*TierDecision, error)
	CheckVoteSpend(ctx context.Context, tx pgx.Tx, account *domain.Account, amount decimal.Decimal, window time.Duration) (*TierDecision, error)
	// ApplyUpgrade raises the account tier within tx. It reports false and
	// leaves the tier alone when tier is not higher than the current one.
	ApplyUpgrade(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, tier domain.VerificationTier) (bool, error)
}

// TierService is the administrative surface of the tier gate.
type TierService interface {
	Limits(ctx context.Context, accountID uuid.UUID) (*TierLimitsView, error)
	Revoke(ctx context.Context, accountID uuid.UUID, tier domain.VerificationTier, reason string) (*domain.Account, error)
}

// TierLimitsView reports both ceilings at the current tier.
type TierLimitsView struct {
	Tier       domain.VerificationTier `json:"tier"`
	Withdrawal TierDecision            `json:"withdrawal"`
	VoteSpend  TierDecision            `json:"vote_spend"`
	Window     time.Duration           `json:"window_ns"`
}

// LedgerService exposes read models and maintenance over the ledger.
type LedgerService interface {
	GetWallet(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, error)
	Reconcile(ctx context.Context, accountID uuid.UUID) (*domain.Reconciliation, error)
	ReconcileAll(ctx context.Context) ([]domain.Reconciliation, error)
	Deactivate(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
}

// CastVoteRequest holds validated input for casting a vote.
type CastVoteRequest struct {
	AccountID      uuid.UUID
	CandidateID    uuid.UUID
	RoundID        uuid.UUID
	Weight         int
	IdempotencyKey string
}

// VoteResult is returned by CastVote.
type VoteResult struct {
	TransactionID  uuid.UUID       `json:"transaction_id"`
	VoteID         *uuid.UUID      `json:"vote_id,omitempty"`
	NewBalance     decimal.Decimal `json:"new_balance"`
	CandidateTally int64           `json:"candidate_tally"`
	Replayed       bool            `json:"-"`
}

// CreateRoundRequest holds input for a new voting round.
type CreateRoundRequest struct {
	Name            string
	TokenCost       decimal.Decimal
	MaxVotesPerUser int
	StartsAt        time.Time
	EndsAt          time.Time
}

// TallyReconciliation compares a cached tally with the votes table.
type TallyReconciliation struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Cached      int64     `json:"cached"`
	Recomputed  int64     `json:"recomputed"`
	Drift       int64     `json:"drift"`
}

// VotingService is the voting engine.
type VotingService interface {
	CastVote(ctx context.Context, req CastVoteRequest) (*VoteResult, error)
	CreateRound(ctx context.Context, req CreateRoundRequest) (*domain.VotingRound, error)
	GetRound(ctx context.Context, id uuid.UUID) (*domain.VotingRound, error)
	ListRounds(ctx context.Context) ([]domain.VotingRound, error)
	SweepRounds(ctx context.Context) (int, error)
	RecomputeTally(ctx context.Context, candidateID uuid.UUID) (*TallyReconciliation, error)
}

// EndorseRequest holds input for endorsing a candidate.
type EndorseRequest struct {
	CandidateID       uuid.UUID
	EndorserAccountID uuid.UUID
	Category          domain.EndorsementCategory
	Rating            int
	Comment           *string
}

// CandidateService manages candidates, vetting and credibility.
type CandidateService interface {
	CreateCandidate(ctx context.Context, name string) (*domain.Candidate, error)
	GetCandidate(ctx context.Context, id uuid.UUID) (*domain.Candidate, error)
	AdvanceVetting(ctx context.Context, id uuid.UUID, to domain.VettingStatus) (*domain.Candidate, error)
	AddEndorsement(ctx context.Context, req EndorseRequest) (*domain.Candidate, error)
	RecomputeScore(ctx context.Context, id uuid.UUID) (*domain.Candidate, error)
}

// KYCSubmitRequest holds validated input for a KYC submission.
type KYCSubmitRequest struct {
	AccountID      uuid.UUID
	RequestedTier  domain.VerificationTier
	DocumentType   string
	DocumentNumber string
}

// KYCDecisionRequest is the provider's verdict on a submission.
type KYCDecisionRequest struct {
	SubmissionID uuid.UUID
	Approved     bool
	Note         *string
}

// KYCService handles identity submissions and the resulting tier upgrades.
type KYCService interface {
	Submit(ctx context.Context, req KYCSubmitRequest) (*domain.KYCSubmission, error)
	Decide(ctx context.Context, req KYCDecisionRequest) (*domain.KYCSubmission, error)
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for participant registration.
type RegisterRequest struct {
	Username    string
	Password    string
	DisplayName string
}

// RegisterResponse holds the registration result.
type RegisterResponse struct {
	ParticipantID uuid.UUID
	AccountID     uuid.UUID
}

// AuditService records audit entries without blocking the request.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
