package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vote is one cast. Several casts by the same account for the same candidate
// in a round accumulate up to the round's MaxVotesPerUser.
type Vote struct {
	ID            uuid.UUID `json:"id"`
	AccountID     uuid.UUID `json:"account_id"`
	CandidateID   uuid.UUID `json:"candidate_id"`
	RoundID       uuid.UUID `json:"round_id"`
	Weight        int       `json:"weight"`
	TransactionID uuid.UUID `json:"transaction_id"` // the VOTE debit that paid for it
	CreatedAt     time.Time `json:"created_at"`
}
