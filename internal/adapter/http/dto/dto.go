package dto

import (
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for participant registration.
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	DisplayName string `json:"display_name" binding:"required,min=1,max=100"`
}

// LoginRequest is the request body for participant login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterResponse struct {
	ParticipantID string `json:"participant_id"`
	AccountID     string `json:"account_id"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// Amounts travel as decimal strings ("12.50") so no precision is lost in JSON.

// WithdrawRequest is the request body for POST /withdraw.
type WithdrawRequest struct {
	Amount         string `json:"amount" binding:"required,sup_amount"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=128,safe_id"`
}

// DonateRequest funds a project with SUP.
type DonateRequest struct {
	ProjectID      string `json:"project_id" binding:"required,max=100,safe_id"`
	Amount         string `json:"amount" binding:"required,sup_amount"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=128,safe_id"`
}

// TransferRequest moves SUP to another account.
type TransferRequest struct {
	ToAccountID    string `json:"to_account_id" binding:"required,uuid"`
	Amount         string `json:"amount" binding:"required,sup_amount"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=128,safe_id"`
}

// VoteRequest is the request body for POST /vote. Weight is range-checked
// against the round by the voting service.
type VoteRequest struct {
	CandidateID    string `json:"candidate_id" binding:"required,uuid"`
	RoundID        string `json:"round_id" binding:"required,uuid"`
	Weight         int    `json:"weight"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=128,safe_id"`
}

// IntentRequest is a service client's request to move SUP on a participant account.
type IntentRequest struct {
	AccountID      string  `json:"account_id" binding:"required,uuid"`
	Type           string  `json:"type" binding:"required"`
	Amount         string  `json:"amount" binding:"required,sup_amount"`
	Reference      *string `json:"reference,omitempty" binding:"omitempty,max=200"`
	IdempotencyKey string  `json:"idempotency_key" binding:"required,max=128,safe_id"`
}

// KYCSubmitRequest is the request body for POST /kyc/submit.
type KYCSubmitRequest struct {
	RequestedTier  string `json:"requested_tier" binding:"required,oneof=TIER_1 TIER_2"`
	DocumentType   string `json:"document_type" binding:"required,max=50"`
	DocumentNumber string `json:"document_number" binding:"required,max=100"`
}

// KYCDecisionRequest is the KYC provider's verdict.
type KYCDecisionRequest struct {
	SubmissionID string  `json:"submission_id" binding:"required,uuid"`
	Approved     *bool   `json:"approved" binding:"required"`
	Note         *string `json:"note,omitempty" binding:"omitempty,max=500"`
}

// EndorseRequest is the request body for POST /candidates/:id/endorsements.
type EndorseRequest struct {
	Category string  `json:"category" binding:"required,oneof=INTEGRITY COMPETENCE COMMITMENT"`
	Rating   int     `json:"rating" binding:"required,gte=1,lte=10"`
	Comment  *string `json:"comment,omitempty" binding:"omitempty,max=1000"`
}

// CreateRoundRequest is the request body for POST /admin/rounds.
type CreateRoundRequest struct {
	Name            string    `json:"name" binding:"required,max=200"`
	TokenCost       string    `json:"token_cost" binding:"required,sup_amount"`
	MaxVotesPerUser int       `json:"max_votes_per_user" binding:"required,gte=1"`
	StartsAt        time.Time `json:"starts_at" binding:"required"`
	EndsAt          time.Time `json:"ends_at" binding:"required"`
}

type CreateCandidateRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

type VettingRequest struct {
	Status string `json:"status" binding:"required"`
}

type RevokeTierRequest struct {
	Tier   string `json:"tier" binding:"required,oneof=NONE TIER_1"`
	Reason string `json:"reason" binding:"required,max=500"`
}

type ReverseRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// WalletResponse is the response body for GET /wallet.
type WalletResponse struct {
	AccountID      string `json:"account_id"`
	Balance        string `json:"balance"`
	CashEscrow     string `json:"cash_escrow"`
	Tier           string `json:"tier"`
	LifetimeEarned string `json:"lifetime_earned"`
	Active         bool   `json:"active"`
}

func NewWalletResponse(a *domain.Account) WalletResponse {
	return WalletResponse{
		AccountID:      a.ID.String(),
		Balance:        domain.FormatAmount(a.Balance),
		CashEscrow:     domain.FormatAmount(a.CashEscrow),
		Tier:           string(a.Tier),
		LifetimeEarned: domain.FormatAmount(a.LifetimeEarned),
		Active:         a.Active,
	}
}

// TierDecisionResponse renders one ceiling check.
type TierDecisionResponse struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Ceiling   string `json:"ceiling"`
	Used      string `json:"used"`
	Remaining string `json:"remaining"`
}

type LimitsResponse struct {
	Tier        string               `json:"tier"`
	WindowHours float64              `json:"window_hours"`
	Withdrawal  TierDecisionResponse `json:"withdrawal"`
	VoteSpend   TierDecisionResponse `json:"vote_spend"`
}

func NewLimitsResponse(v *ports.TierLimitsView) LimitsResponse {
	return LimitsResponse{
		Tier:        string(v.Tier),
		WindowHours: v.Window.Hours(),
		Withdrawal:  newTierDecision(v.Withdrawal),
		VoteSpend:   newTierDecision(v.VoteSpend),
	}
}

func newTierDecision(d ports.TierDecision) TierDecisionResponse {
	return TierDecisionResponse{
		Allowed:   d.Allowed,
		Reason:    d.Reason,
		Ceiling:   domain.FormatAmount(d.Ceiling),
		Used:      domain.FormatAmount(d.Used),
		Remaining: domain.FormatAmount(d.Remaining),
	}
}

// TransactionResponse renders one ledger entry.
type TransactionResponse struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Amount         string  `json:"amount"`
	BalanceAfter   string  `json:"balance_after"`
	Reference      *string `json:"reference,omitempty"`
	CounterpartyID *string `json:"counterparty_id,omitempty"`
	ReversesID     *string `json:"reverses_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:           t.ID.String(),
		Type:         string(t.Type),
		Amount:       domain.FormatAmount(t.Amount),
		BalanceAfter: domain.FormatAmount(t.BalanceAfter),
		Reference:    t.Reference,
		CreatedAt:    t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.CounterpartyID != nil {
		s := t.CounterpartyID.String()
		resp.CounterpartyID = &s
	}
	if t.ReversesID != nil {
		s := t.ReversesID.String()
		resp.ReversesID = &s
	}
	return resp
}

type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Count int                   `json:"count"`
}

func NewTransactionListResponse(txns []domain.Transaction) TransactionListResponse {
	items := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, NewTransactionResponse(&txns[i]))
	}
	return TransactionListResponse{Items: items, Count: len(items)}
}

// IntentResponse is returned by every balance-moving endpoint except /vote.
type IntentResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	NewBalance  string              `json:"new_balance"`
	Replayed    bool                `json:"replayed"`
}

func NewIntentResponse(r *ports.IntentResult) IntentResponse {
	return IntentResponse{
		Transaction: NewTransactionResponse(&r.Transaction),
		NewBalance:  domain.FormatAmount(r.NewBalance),
		Replayed:    r.Replayed,
	}
}

type VoteResponse struct {
	TransactionID  string  `json:"transaction_id"`
	VoteID         *string `json:"vote_id,omitempty"`
	NewBalance     string  `json:"new_balance"`
	CandidateTally int64   `json:"candidate_tally"`
	Replayed       bool    `json:"replayed"`
}

func NewVoteResponse(r *ports.VoteResult) VoteResponse {
	resp := VoteResponse{
		TransactionID:  r.TransactionID.String(),
		NewBalance:     domain.FormatAmount(r.NewBalance),
		CandidateTally: r.CandidateTally,
		Replayed:       r.Replayed,
	}
	if r.VoteID != nil {
		s := r.VoteID.String()
		resp.VoteID = &s
	}
	return resp
}

type RoundResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	TokenCost       string `json:"token_cost"`
	MaxVotesPerUser int    `json:"max_votes_per_user"`
	StartsAt        string `json:"starts_at"`
	EndsAt          string `json:"ends_at"`
	Status          string `json:"status"`
}

// NewRoundResponse reports the status derived at now, not the persisted one.
func NewRoundResponse(r *domain.VotingRound, now time.Time) RoundResponse {
	return RoundResponse{
		ID:              r.ID.String(),
		Name:            r.Name,
		TokenCost:       domain.FormatAmount(r.TokenCost),
		MaxVotesPerUser: r.MaxVotesPerUser,
		StartsAt:        r.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:          r.EndsAt.UTC().Format(time.RFC3339),
		Status:          string(r.StatusAt(now)),
	}
}

type CandidateResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	VoteTally        int64  `json:"vote_tally"`
	EndorsementCount int    `json:"endorsement_count"`
	Integrity        string `json:"integrity"`
	Competence       string `json:"competence"`
	Commitment       string `json:"commitment"`
	OverallScore     string `json:"overall_score"`
	VettingStatus    string `json:"vetting_status"`
}

func NewCandidateResponse(c *domain.Candidate) CandidateResponse {
	return CandidateResponse{
		ID:               c.ID.String(),
		Name:             c.Name,
		VoteTally:        c.VoteTally,
		EndorsementCount: c.EndorsementCount,
		Integrity:        domain.FormatAmount(c.Integrity),
		Competence:       domain.FormatAmount(c.Competence),
		Commitment:       domain.FormatAmount(c.Commitment),
		OverallScore:     domain.FormatAmount(c.OverallScore),
		VettingStatus:    string(c.VettingStatus),
	}
}

type KYCSubmissionResponse struct {
	ID            string  `json:"id"`
	AccountID     string  `json:"account_id"`
	RequestedTier string  `json:"requested_tier"`
	DocumentType  string  `json:"document_type"`
	Status        string  `json:"status"`
	ReviewNote    *string `json:"review_note,omitempty"`
	CreatedAt     string  `json:"created_at"`
	DecidedAt     *string `json:"decided_at,omitempty"`
}

func NewKYCSubmissionResponse(k *domain.KYCSubmission) KYCSubmissionResponse {
	resp := KYCSubmissionResponse{
		ID:            k.ID.String(),
		AccountID:     k.AccountID.String(),
		RequestedTier: string(k.RequestedTier),
		DocumentType:  k.DocumentType,
		Status:        string(k.Status),
		ReviewNote:    k.ReviewNote,
		CreatedAt:     k.CreatedAt.UTC().Format(time.RFC3339),
	}
	if k.DecidedAt != nil {
		s := k.DecidedAt.UTC().Format(time.RFC3339)
		resp.DecidedAt = &s
	}
	return resp
}

// ParseAmount parses a validated decimal string.
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
