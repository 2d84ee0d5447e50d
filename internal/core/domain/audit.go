package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister       AuditAction = "REGISTER"
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionIntent         AuditAction = "INTENT"
	AuditActionVote           AuditAction = "VOTE"
	AuditActionWithdraw       AuditAction = "WITHDRAW"
	AuditActionDonate         AuditAction = "DONATE"
	AuditActionTransfer       AuditAction = "TRANSFER"
	AuditActionReverse        AuditAction = "REVERSE"
	AuditActionKYCSubmit      AuditAction = "KYC_SUBMIT"
	AuditActionKYCDecision    AuditAction = "KYC_DECISION"
	AuditActionTierRevoke     AuditAction = "TIER_REVOKE"
	AuditActionDeactivate     AuditAction = "DEACTIVATE"
	AuditActionVetting        AuditAction = "VETTING"
	AuditActionEndorse        AuditAction = "ENDORSE"
	AuditActionRoundCreate    AuditAction = "ROUND_CREATE"
	AuditActionCandidateAdmin AuditAction = "CANDIDATE_ADMIN"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      *uuid.UUID  `json:"actor_id,omitempty"` // participant, or nil for service clients
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
