package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditLog_VoteRecordsActor(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)
	participant := uuid.New()

	var got *domain.AuditLog
	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		got = entry
	})

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/vote", func(c *gin.Context) {
		c.Set(CtxParticipantID, participant)
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/vote", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, domain.AuditActionVote, got.Action)
	assert.Equal(t, "transaction", got.ResourceType)
	require.NotNil(t, got.ActorID)
	assert.Equal(t, participant, *got.ActorID)
}

func TestAuditLog_RouteParamAndClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)
	txID := uuid.New()

	var got *domain.AuditLog
	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		got = entry
	})

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/admin/transactions/:id/reverse", func(c *gin.Context) {
		c.Set(CtxClient, &ports.ServiceClient{Name: "ops"})
		c.JSON(http.StatusCreated, gin.H{})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/transactions/"+txID.String()+"/reverse", nil))

	require.NotNil(t, got)
	assert.Equal(t, domain.AuditActionReverse, got.Action)
	assert.Equal(t, txID.String(), got.ResourceID)
	assert.Nil(t, got.ActorID)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(got.Details), &details))
	assert.Equal(t, "ops", details["client"])
}

func TestAuditLog_Skips(t *testing.T) {
	cases := []struct {
		name   string
		method string
		route  string
		status int
	}{
		{"GET", http.MethodGet, "/api/v1/wallet", http.StatusOK},
		{"failed write", http.MethodPost, "/api/v1/withdraw", http.StatusUnprocessableEntity},
		{"unmapped route", http.MethodPost, "/api/v1/unknown", http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockAudit := mocks.NewMockAuditService(ctrl) // no Log expected

			r := gin.New()
			r.Use(AuditLog(mockAudit))
			r.Handle(tc.method, tc.route, func(c *gin.Context) {
				c.JSON(tc.status, gin.H{})
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.route, nil))
			assert.Equal(t, tc.status, w.Code)
		})
	}
}
