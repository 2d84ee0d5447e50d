package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a participant's SUP balance holder.
// Balance is a cache of the sum of the account's transactions.
type Account struct {
	ID             uuid.UUID        `json:"id"`
	ParticipantID  uuid.UUID        `json:"participant_id"`
	Balance        decimal.Decimal  `json:"balance"`
	CashEscrow     decimal.Decimal  `json:"cash_escrow"` // withdrawn SUP awaiting cash payout
	Tier           VerificationTier `json:"tier"`
	LifetimeEarned decimal.Decimal  `json:"lifetime_earned"`
	Version        int64            `json:"version"` // Optimistic lock version, bumped on every balance write
	Active         bool             `json:"active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewAccount returns an empty, active, unverified account.
func NewAccount(participantID uuid.UUID, now time.Time) *Account {
	return &Account{
		ID:             uuid.New(),
		ParticipantID:  participantID,
		Balance:        decimal.Zero,
		CashEscrow:     decimal.Zero,
		Tier:           TierNone,
		LifetimeEarned: decimal.Zero,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
