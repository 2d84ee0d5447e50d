package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"whole", "10", true},
		{"two decimals", "0.01", true},
		{"three decimals", "1.005", false},
		{"zero", "0", false},
		{"negative", "-5", false},
		{"trailing zeros", "2.500", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "90.00", FormatAmount(decimal.NewFromInt(90)))
	assert.Equal(t, "-2.50", FormatAmount(decimal.RequireFromString("-2.5")))
}

func TestTransactionType_Valid(t *testing.T) {
	for _, tt := range AllTransactionTypes {
		assert.True(t, tt.Valid(), tt)
	}
	assert.False(t, TransactionType("MINT").Valid())
	assert.False(t, TransactionType("").Valid())
}

func TestTransactionType_Reversible(t *testing.T) {
	tests := []struct {
		txType TransactionType
		want   bool
	}{
		{TransactionTypeWithdraw, true},
		{TransactionTypeDonate, true},
		{TransactionTypePurchase, true},
		{TransactionTypeFee, true},
		{TransactionTypeVote, false},
		{TransactionTypeEarn, false},
		{TransactionTypePrize, false},
		{TransactionTypeTransfer, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.txType), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.txType.Reversible())
		})
	}
}

func TestTransactionType_IsCredit(t *testing.T) {
	assert.True(t, TransactionTypeEarn.IsCredit())
	assert.True(t, TransactionTypePrize.IsCredit())
	assert.False(t, TransactionTypeVote.IsCredit())
	assert.False(t, TransactionTypeTransfer.IsCredit())
}

func TestTransaction_IsCompensating(t *testing.T) {
	orig := uuid.New()
	assert.False(t, (&Transaction{}).IsCompensating())
	assert.True(t, (&Transaction{ReversesID: &orig}).IsCompensating())
	assert.True(t, (&Transaction{Amount: decimal.NewFromInt(-1)}).IsDebit())
}

func TestBuildIdempotencyKey(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	key := BuildIdempotencyKey(id, TransactionTypeVote, "k-1")
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000:VOTE:k-1", key)
}

func TestVerificationTier_Ordering(t *testing.T) {
	assert.True(t, Tier1.Above(TierNone))
	assert.True(t, Tier2.Above(Tier1))
	assert.False(t, TierNone.Above(Tier1))
	assert.False(t, Tier1.Above(Tier1))
	assert.False(t, VerificationTier("TIER_9").Valid())
}

func TestTierPolicy_Defaults(t *testing.T) {
	p := DefaultTierPolicy()
	assert.True(t, p.LimitsFor(TierNone).WeeklyWithdrawal.IsZero())
	assert.Equal(t, "500.00", FormatAmount(p.LimitsFor(TierNone).WeeklyVoteSpend))
	assert.Equal(t, "1000.00", FormatAmount(p.LimitsFor(Tier1).WeeklyWithdrawal))
	assert.True(t, p.LimitsFor("UNKNOWN").WeeklyVoteSpend.IsZero())
}

func TestVotingRound_StatusAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &VotingRound{StartsAt: start, EndsAt: start.Add(48 * time.Hour), Status: RoundStatusUpcoming}

	assert.Equal(t, RoundStatusUpcoming, r.StatusAt(start.Add(-time.Second)))
	assert.Equal(t, RoundStatusActive, r.StatusAt(start))
	assert.Equal(t, RoundStatusActive, r.StatusAt(start.Add(47*time.Hour)))
	assert.Equal(t, RoundStatusEnded, r.StatusAt(start.Add(48*time.Hour)))

	// ENDED is terminal even if the clock is rewound
	r.Status = RoundStatusEnded
	assert.Equal(t, RoundStatusEnded, r.StatusAt(start.Add(time.Hour)))
}

func TestVotingRound_VoteCost(t *testing.T) {
	r := &VotingRound{TokenCost: decimal.RequireFromString("2.50")}
	assert.Equal(t, "12.50", FormatAmount(r.VoteCost(5)))
}

func TestVotingRound_Validate(t *testing.T) {
	start := time.Now()
	valid := VotingRound{Name: "Ward 3", TokenCost: decimal.NewFromInt(2), MaxVotesPerUser: 10, StartsAt: start, EndsAt: start.Add(time.Hour)}
	assert.Empty(t, valid.Validate())

	noName := valid
	noName.Name = ""
	assert.NotEmpty(t, noName.Validate())

	badCost := valid
	badCost.TokenCost = decimal.RequireFromString("0.001")
	assert.NotEmpty(t, badCost.Validate())

	badMax := valid
	badMax.MaxVotesPerUser = 0
	assert.NotEmpty(t, badMax.Validate())

	inverted := valid
	inverted.EndsAt = start
	assert.NotEmpty(t, inverted.Validate())
}

func TestVettingStatus_Transitions(t *testing.T) {
	assert.True(t, VettingPending.CanAdvanceTo(VettingScreening))
	assert.True(t, VettingQualified.CanAdvanceTo(VettingTraining))
	assert.False(t, VettingPending.CanAdvanceTo(VettingQualified), "no skipping")
	assert.False(t, VettingQualified.CanAdvanceTo(VettingScreening), "no going back")
	assert.False(t, VettingDeployed.CanAdvanceTo(VettingDeployed))

	_, ok := VettingDeployed.Next()
	assert.False(t, ok)
}

func TestVettingStatus_CanReceiveVotes(t *testing.T) {
	tests := []struct {
		status VettingStatus
		want   bool
	}{
		{VettingPending, false},
		{VettingScreening, false},
		{VettingCommunityReview, false},
		{VettingQualified, true},
		{VettingTraining, true},
		{VettingDeployed, true},
		{VettingStatus("BOGUS"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.CanReceiveVotes())
		})
	}
}

func TestReconcile(t *testing.T) {
	acc := &Account{ID: uuid.New(), Balance: decimal.NewFromInt(90)}
	log := []Transaction{
		{Amount: decimal.NewFromInt(100), BalanceAfter: decimal.NewFromInt(100)},
		{Amount: decimal.NewFromInt(-10), BalanceAfter: decimal.NewFromInt(90)},
	}

	r := Reconcile(acc, log)
	assert.True(t, r.Consistent)
	assert.Equal(t, "90.00", r.LogSum)
	assert.Equal(t, 2, r.Entries)
	assert.Empty(t, r.Mismatch())

	acc.Balance = decimal.RequireFromString("90.01")
	r = Reconcile(acc, log)
	assert.False(t, r.Consistent)
	assert.Contains(t, r.Mismatch(), "cached=90.01")
}

func TestReconcile_EmptyLog(t *testing.T) {
	acc := NewAccount(uuid.New(), time.Now())
	r := Reconcile(acc, nil)
	assert.True(t, r.Consistent)
	assert.Equal(t, "0.00", r.CachedBalance)
}

func TestNewAccount(t *testing.T) {
	pid := uuid.New()
	acc := NewAccount(pid, time.Now())
	assert.Equal(t, pid, acc.ParticipantID)
	assert.Equal(t, TierNone, acc.Tier)
	assert.True(t, acc.Active)
	assert.True(t, acc.Balance.IsZero())
}
