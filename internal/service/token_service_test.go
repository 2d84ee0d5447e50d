package service

import (
	"testing"
	"time"

	"civic-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key-for-unit-tests"

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 24*time.Hour, "sup-ledger")
	participantID, accountID := uuid.New(), uuid.New()

	tokenStr, expiresAt, err := svc.Generate(participantID, accountID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, participantID, claims.ParticipantID)
	assert.Equal(t, accountID, claims.AccountID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestJWTTokenService_UnknownRoleDowngradesToParticipant(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "sup-ledger")

	tokenStr, _, err := svc.Generate(uuid.New(), uuid.New(), domain.Role("ROOT"))
	require.NoError(t, err)

	claims, err := svc.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleParticipant, claims.Role)
}

func TestJWTTokenService_ExpiredToken(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, -1*time.Hour, "sup-ledger")

	tokenStr, _, err := svc.Generate(uuid.New(), uuid.New(), domain.RoleParticipant)
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err, "expired token should fail validation")
}

func TestJWTTokenService_WrongIssuer(t *testing.T) {
	issued := NewJWTTokenService(testJWTSecret, time.Hour, "someone-else")
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "sup-ledger")

	tokenStr, _, err := issued.Generate(uuid.New(), uuid.New(), domain.RoleParticipant)
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_InvalidSignature(t *testing.T) {
	svc1 := NewJWTTokenService("secret-1", 24*time.Hour, "sup-ledger")
	svc2 := NewJWTTokenService("secret-2", 24*time.Hour, "sup-ledger")

	tokenStr, _, err := svc1.Generate(uuid.New(), uuid.New(), domain.RoleParticipant)
	require.NoError(t, err)

	_, err = svc2.Validate(tokenStr)
	assert.Error(t, err, "token signed with different secret should fail")
}

func TestJWTTokenService_Garbage(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 24*time.Hour, "sup-ledger")

	for _, in := range []string{"", "not.a.valid.jwt"} {
		_, err := svc.Validate(in)
		assert.Error(t, err, in)
	}
}
