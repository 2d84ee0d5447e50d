package domain

import "github.com/shopspring/decimal"

// VerificationTier is an identity-verification level gating cash withdrawals.
type VerificationTier string

const (
	TierNone VerificationTier = "NONE"
	Tier1    VerificationTier = "TIER_1"
	Tier2    VerificationTier = "TIER_2"
)

// Rank orders tiers; unknown tiers rank -1.
func (t VerificationTier) Rank() int {
	switch t {
	case TierNone:
		return 0
	case Tier1:
		return 1
	case Tier2:
		return 2
	default:
		return -1
	}
}

func (t VerificationTier) Valid() bool {
	return t.Rank() >= 0
}

// Above reports whether t is strictly higher than other.
func (t VerificationTier) Above(other VerificationTier) bool {
	return t.Rank() > other.Rank()
}

// TierLimits are the rolling-window ceilings for one tier.
type TierLimits struct {
	WeeklyWithdrawal decimal.Decimal `json:"weekly_withdrawal"`
	WeeklyVoteSpend  decimal.Decimal `json:"weekly_vote_spend"`
}

// TierPolicy maps each tier to its ceilings.
type TierPolicy map[VerificationTier]TierLimits

// DefaultTierPolicy is used when no tier configuration is supplied.
func DefaultTierPolicy() TierPolicy {
	return TierPolicy{
		TierNone: {WeeklyWithdrawal: decimal.Zero, WeeklyVoteSpend: decimal.NewFromInt(500)},
		Tier1:    {WeeklyWithdrawal: decimal.NewFromInt(1000), WeeklyVoteSpend: decimal.NewFromInt(5000)},
		Tier2:    {WeeklyWithdrawal: decimal.NewFromInt(10000), WeeklyVoteSpend: decimal.NewFromInt(50000)},
	}
}

// LimitsFor returns the ceilings of tier. Unknown tiers get zero ceilings.
func (p TierPolicy) LimitsFor(tier VerificationTier) TierLimits {
	if l, ok := p[tier]; ok {
		return l
	}
	return TierLimits{WeeklyWithdrawal: decimal.Zero, WeeklyVoteSpend: decimal.Zero}
}
