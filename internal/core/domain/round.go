package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoundStatus is the lifecycle state of a voting round.
type RoundStatus string

const (
	RoundStatusUpcoming RoundStatus = "UPCOMING"
	RoundStatusActive   RoundStatus = "ACTIVE"
	RoundStatusEnded    RoundStatus = "ENDED"
)

// VotingRound is a time-boxed election. Status is derived from the clock;
// the persisted value is only refreshed by the sweeper.
type VotingRound struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	TokenCost       decimal.Decimal `json:"token_cost"` // SUP per unit of vote weight
	MaxVotesPerUser int             `json:"max_votes_per_user"`
	StartsAt        time.Time       `json:"starts_at"`
	EndsAt          time.Time       `json:"ends_at"`
	Status          RoundStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// StatusAt derives the round status at now. Once ENDED is persisted it is
// terminal regardless of the clock.
func (r *VotingRound) StatusAt(now time.Time) RoundStatus {
	if r.Status == RoundStatusEnded || !now.Before(r.EndsAt) {
		return RoundStatusEnded
	}
	if now.Before(r.StartsAt) {
		return RoundStatusUpcoming
	}
	return RoundStatusActive
}

// VoteCost is the SUP debited for casting weight votes.
func (r *VotingRound) VoteCost(weight int) decimal.Decimal {
	return r.TokenCost.Mul(decimal.NewFromInt(int64(weight)))
}

// Validate returns a description of the first invalid field, or "".
func (r *VotingRound) Validate() string {
	switch {
	case r.Name == "":
		return "round name is required"
	case !ValidAmount(r.TokenCost):
		return "token cost must be positive with at most 2 decimal places"
	case r.MaxVotesPerUser < 1:
		return "max votes per user must be at least 1"
	case !r.EndsAt.After(r.StartsAt):
		return "round must end after it starts"
	}
	return ""
}
