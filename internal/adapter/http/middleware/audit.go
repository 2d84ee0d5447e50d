package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type auditRoute struct {
	action   domain.AuditAction
	resource string
}

// auditRoutes maps "METHOD route-pattern" to the audited action.
var auditRoutes = map[string]auditRoute{
	"POST /api/v1/auth/register":                      {domain.AuditActionRegister, "participant"},
	"POST /api/v1/auth/login":                         {domain.AuditActionLogin, "session"},
	"POST /api/v1/vote":                               {domain.AuditActionVote, "transaction"},
	"POST /api/v1/withdraw":                           {domain.AuditActionWithdraw, "transaction"},
	"POST /api/v1/donate":                             {domain.AuditActionDonate, "transaction"},
	"POST /api/v1/transfer":                           {domain.AuditActionTransfer, "transaction"},
	"POST /api/v1/kyc/submit":                         {domain.AuditActionKYCSubmit, "kyc_submission"},
	"POST /api/v1/candidates/:id/endorsements":        {domain.AuditActionEndorse, "candidate"},
	"POST /api/v1/internal/intents":                   {domain.AuditActionIntent, "transaction"},
	"POST /api/v1/internal/kyc/decisions":             {domain.AuditActionKYCDecision, "kyc_submission"},
	"POST /api/v1/admin/rounds":                       {domain.AuditActionRoundCreate, "voting_round"},
	"POST /api/v1/admin/rounds/sweep":                 {domain.AuditActionRoundCreate, "voting_round"},
	"POST /api/v1/admin/candidates":                   {domain.AuditActionCandidateAdmin, "candidate"},
	"POST /api/v1/admin/candidates/:id/vetting":       {domain.AuditActionVetting, "candidate"},
	"POST /api/v1/admin/candidates/:id/recompute":     {domain.AuditActionCandidateAdmin, "candidate"},
	"POST /api/v1/admin/accounts/:id/tier/revoke":     {domain.AuditActionTierRevoke, "account"},
	"POST /api/v1/admin/accounts/:id/deactivate":      {domain.AuditActionDeactivate, "account"},
	"POST /api/v1/admin/transactions/:id/reverse":     {domain.AuditActionReverse, "transaction"},
	"POST /api/v1/admin/candidates/:id/tally/recount": {domain.AuditActionCandidateAdmin, "candidate"},
}

// AuditLog records successful write requests after the handler ran.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		route, ok := auditRoutes[c.Request.Method+" "+c.FullPath()]
		if !ok {
			return
		}

		var actorID *uuid.UUID
		if id, ok := ParticipantID(c); ok {
			actorID = &id
		}
		details := map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
		}
		if client, ok := Client(c); ok {
			details["client"] = client.Name
		}
		if status == http.StatusOK && c.Writer.Header().Get(response.HeaderReplayed) == "true" {
			details["replayed"] = true
		}
		encoded, _ := json.Marshal(details)

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      actorID,
			Action:       route.action,
			ResourceType: route.resource,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(encoded),
			CreatedAt:    time.Now().UTC(),
		})
	}
}
