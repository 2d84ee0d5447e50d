package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role controls which HTTP surfaces a participant can reach.
type Role string

const (
	RoleParticipant Role = "PARTICIPANT"
	RoleAdmin       Role = "ADMIN"
)

// Participant is a registered user. Every participant owns exactly one account.
type Participant struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose
	DisplayName  string    `json:"display_name"`
	Role         Role      `json:"role"`
	AccountID    uuid.UUID `json:"account_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p *Participant) IsAdmin() bool {
	return p.Role == RoleAdmin
}
