package service

import (
	"fmt"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTTokenService implements ports.TokenService using HS256 JWT.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate creates a signed JWT for a participant.
func (s *JWTTokenService) Generate(participantID, accountID uuid.UUID, role domain.Role) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":  participantID.String(),
		"acct": accountID.String(),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"iss":  s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses and validates a JWT token, returning the claims.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	participantID, err := uuidClaim(claims, "sub")
	if err != nil {
		return nil, err
	}
	accountID, err := uuidClaim(claims, "acct")
	if err != nil {
		return nil, err
	}

	role := domain.Role(fmt.Sprint(claims["role"]))
	if role != domain.RoleAdmin {
		role = domain.RoleParticipant
	}

	return &ports.TokenClaims{
		ParticipantID: participantID,
		AccountID:     accountID,
		Role:          role,
	}, nil
}

func uuidClaim(claims jwt.MapClaims, name string) (uuid.UUID, error) {
	raw, ok := claims[name].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing %s claim", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s claim: %w", name, err)
	}
	return id, nil
}
