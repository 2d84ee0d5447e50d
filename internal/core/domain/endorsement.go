package domain

import (
	"time"

	"github.com/google/uuid"
)

// EndorsementCategory is one of the three credibility dimensions.
type EndorsementCategory string

const (
	CategoryIntegrity  EndorsementCategory = "INTEGRITY"
	CategoryCompetence EndorsementCategory = "COMPETENCE"
	CategoryCommitment EndorsementCategory = "COMMITMENT"
)

func (c EndorsementCategory) Valid() bool {
	switch c {
	case CategoryIntegrity, CategoryCompetence, CategoryCommitment:
		return true
	}
	return false
}

// Rating bounds for a single endorsement.
const (
	MinEndorsementRating = 1
	MaxEndorsementRating = 10
)

// Endorsement is a participant's rating of a candidate in one category.
// At most one per (endorser, candidate, category).
type Endorsement struct {
	ID                uuid.UUID           `json:"id"`
	CandidateID       uuid.UUID           `json:"candidate_id"`
	EndorserAccountID uuid.UUID           `json:"endorser_account_id"`
	Category          EndorsementCategory `json:"category"`
	Rating            int                 `json:"rating"`
	Comment           *string             `json:"comment,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}
