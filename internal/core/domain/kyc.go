package domain

import (
	"time"

	"github.com/google/uuid"
)

// KYCStatus is the review state of an identity submission.
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "PENDING"
	KYCStatusApproved KYCStatus = "APPROVED"
	KYCStatusRejected KYCStatus = "REJECTED"
)

// KYCSubmission asks the external KYC provider to verify an account for a
// higher tier. The document number is stored AES-encrypted only.
type KYCSubmission struct {
	ID             uuid.UUID        `json:"id"`
	AccountID      uuid.UUID        `json:"account_id"`
	RequestedTier  VerificationTier `json:"requested_tier"`
	DocumentType   string           `json:"document_type"`
	DocumentRefEnc string           `json:"-"`
	Status         KYCStatus        `json:"status"`
	ReviewNote     *string          `json:"review_note,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	DecidedAt      *time.Time       `json:"decided_at,omitempty"`
}

func (k *KYCSubmission) IsPending() bool {
	return k.Status == KYCStatusPending
}
