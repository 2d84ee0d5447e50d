package dto

import (
	"testing"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"

	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := RegisterRequest{
		Username:    "  alice  ",
		Password:    "  pass1234  ",
		DisplayName: " Alice A. ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, "pass1234", req.Password)
	assert.Equal(t, "Alice A.", req.DisplayName)
}

func TestSanitizeStruct_EscapesPointerString(t *testing.T) {
	comment := "  great <script>alert('x')</script>  "
	req := EndorseRequest{Category: "INTEGRITY", Rating: 7, Comment: &comment}
	SanitizeStruct(&req)

	assert.Contains(t, *req.Comment, "&lt;script&gt;")
	assert.NotContains(t, *req.Comment, "<script>")
	assert.Equal(t, 7, req.Rating)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := EndorseRequest{Category: "COMPETENCE", Rating: 3}
	SanitizeStruct(&req)
	assert.Nil(t, req.Comment)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	SanitizeStruct("hello") // should not panic
}

func TestSafeID(t *testing.T) {
	for _, tc := range []string{"ref-001", "REF_002", "a.b.c", "key123"} {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
	for _, tc := range []string{"ref 001", "ref<001>", "ref;DROP", "", "ref\n001"} {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %q", tc)
	}
}

func TestWithdrawRequest_AmountValidation(t *testing.T) {
	cases := []struct {
		amount string
		valid  bool
	}{
		{"10", true},
		{"10.5", true},
		{"0.01", true},
		{"0", false},
		{"-5", false},
		{"1.005", false},
		{"ten", false},
	}
	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&WithdrawRequest{Amount: tc.amount, IdempotencyKey: "k-1"})
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestVoteRequest_Validation(t *testing.T) {
	ok := VoteRequest{CandidateID: uuid.NewString(), RoundID: uuid.NewString(), Weight: 2, IdempotencyKey: "vote-1"}
	assert.NoError(t, binding.Validator.ValidateStruct(&ok))

	// Out-of-range weights reach the service, which answers VOTE_001.
	for _, w := range []int{0, -3} {
		zero := ok
		zero.Weight = w
		assert.NoError(t, binding.Validator.ValidateStruct(&zero))
	}

	bad := ok
	bad.CandidateID = "not-a-uuid"
	assert.Error(t, binding.Validator.ValidateStruct(&bad))
}

func TestNewWalletResponse_FixedScale(t *testing.T) {
	a := domain.NewAccount(uuid.New(), time.Now())
	a.Balance = decimal.NewFromInt(90)
	a.CashEscrow = decimal.RequireFromString("2.5")

	resp := NewWalletResponse(a)
	assert.Equal(t, "90.00", resp.Balance)
	assert.Equal(t, "2.50", resp.CashEscrow)
	assert.Equal(t, "0.00", resp.LifetimeEarned)
	assert.Equal(t, "NONE", resp.Tier)
}

func TestNewIntentResponse(t *testing.T) {
	to := uuid.New()
	res := &ports.IntentResult{
		Transaction: domain.Transaction{
			ID: uuid.New(), Type: domain.TransactionTypeTransfer,
			Amount: decimal.NewFromInt(-3), BalanceAfter: decimal.NewFromInt(7),
			CounterpartyID: &to, CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		NewBalance: decimal.NewFromInt(7),
		Replayed:   true,
	}
	resp := NewIntentResponse(res)
	assert.Equal(t, "-3.00", resp.Transaction.Amount)
	assert.Equal(t, "7.00", resp.NewBalance)
	require.NotNil(t, resp.Transaction.CounterpartyID)
	assert.Equal(t, to.String(), *resp.Transaction.CounterpartyID)
	assert.Equal(t, "2026-01-02T03:04:05Z", resp.Transaction.CreatedAt)
	assert.True(t, resp.Replayed)
}

func TestNewRoundResponse_DerivesStatus(t *testing.T) {
	now := time.Now()
	r := &domain.VotingRound{
		ID: uuid.New(), Name: "r", TokenCost: decimal.NewFromInt(2), MaxVotesPerUser: 10,
		StartsAt: now.Add(-time.Hour), EndsAt: now.Add(-time.Minute), Status: domain.RoundStatusActive,
	}
	resp := NewRoundResponse(r, now)
	assert.Equal(t, "ENDED", resp.Status)
	assert.Equal(t, "2.00", resp.TokenCost)
}
