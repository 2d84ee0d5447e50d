package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VettingStatus is a candidate's position in the forward-only vetting pipeline.
type VettingStatus string

const (
	VettingPending         VettingStatus = "PENDING"
	VettingScreening       VettingStatus = "SCREENING"
	VettingCommunityReview VettingStatus = "COMMUNITY_REVIEW"
	VettingQualified       VettingStatus = "QUALIFIED"
	VettingTraining        VettingStatus = "TRAINING"
	VettingDeployed        VettingStatus = "DEPLOYED"
)

var vettingOrder = []VettingStatus{
	VettingPending,
	VettingScreening,
	VettingCommunityReview,
	VettingQualified,
	VettingTraining,
	VettingDeployed,
}

func (s VettingStatus) stage() int {
	for i, v := range vettingOrder {
		if v == s {
			return i
		}
	}
	return -1
}

func (s VettingStatus) Valid() bool {
	return s.stage() >= 0
}

// Next returns the successor stage; ok is false at DEPLOYED or for unknown values.
func (s VettingStatus) Next() (VettingStatus, bool) {
	i := s.stage()
	if i < 0 || i == len(vettingOrder)-1 {
		return "", false
	}
	return vettingOrder[i+1], true
}

// CanAdvanceTo allows exactly one step forward.
func (s VettingStatus) CanAdvanceTo(to VettingStatus) bool {
	next, ok := s.Next()
	return ok && next == to
}

// CanReceiveVotes is true from QUALIFIED onwards.
func (s VettingStatus) CanReceiveVotes() bool {
	return s.stage() >= VettingQualified.stage()
}

// Candidate is a leadership candidate. VoteTally and the scores are derived
// data and can be recomputed from votes and endorsements.
type Candidate struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	VoteTally        int64           `json:"vote_tally"`
	EndorsementCount int             `json:"endorsement_count"`
	Integrity        decimal.Decimal `json:"integrity"`
	Competence       decimal.Decimal `json:"competence"`
	Commitment       decimal.Decimal `json:"commitment"`
	OverallScore     decimal.Decimal `json:"overall_score"`
	VettingStatus    VettingStatus   `json:"vetting_status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ApplyCredibility copies computed scores onto the candidate.
func (c *Candidate) ApplyCredibility(cr Credibility) {
	c.Integrity = cr.Integrity
	c.Competence = cr.Competence
	c.Commitment = cr.Commitment
	c.OverallScore = cr.Overall
	c.EndorsementCount = cr.Count
}
