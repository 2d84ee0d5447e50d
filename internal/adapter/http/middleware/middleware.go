package middleware

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"civic-ledger/internal/core/domain"
	"civic-ledger/internal/core/ports"
	"civic-ledger/pkg/apperror"
	"civic-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Header names for HMAC authentication
	HeaderAccessKey = "X-Client-Access-Key"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"

	// Max timestamp drift allowed (60 seconds)
	maxTimestampDrift = 60 * time.Second

	// Nonce TTL (120 seconds)
	nonceTTL = 120 * time.Second

	// Context keys
	CtxParticipantID = "participant_id"
	CtxAccountID     = "account_id"
	CtxRole          = "role"
	CtxClient        = "service_client"
)

// HMACAuth verifies HMAC-SHA256 signatures from configured service clients.
// Pipeline: Check timestamp -> Lookup client -> Check nonce -> Verify signature.
func HMACAuth(
	clients ports.ClientRegistry,
	sigSvc ports.SignatureService,
	nonceStore ports.NonceStore,
	log zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessKey := c.GetHeader(HeaderAccessKey)
		signature := c.GetHeader(HeaderSignature)
		timestampStr := c.GetHeader(HeaderTimestamp)
		nonce := c.GetHeader(HeaderNonce)

		if accessKey == "" || signature == "" || timestampStr == "" || nonce == "" {
			abort(c, apperror.ErrInvalidAccessKey())
			return
		}

		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			abort(c, apperror.ErrTimestampExpired())
			return
		}
		now := time.Now().Unix()
		if math.Abs(float64(now-timestamp)) > maxTimestampDrift.Seconds() {
			abort(c, apperror.ErrTimestampExpired())
			return
		}

		client, ok := clients.Lookup(accessKey)
		if !ok {
			abort(c, apperror.ErrInvalidAccessKey())
			return
		}

		if nonceStore != nil {
			isNew, err := nonceStore.CheckAndSet(c.Request.Context(), client.AccessKey, nonce, nonceTTL)
			if err != nil {
				log.Warn().Err(err).Str("client", client.Name).Msg("nonce store error, allowing request")
			} else if !isNew {
				abort(c, apperror.ErrNonceUsed())
				return
			}
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abort(c, apperror.Validation("cannot read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		canonical := sigSvc.BuildCanonicalString(
			c.Request.Method,
			c.Request.URL.Path,
			timestamp,
			nonce,
			string(bodyBytes),
		)
		if !sigSvc.Verify(client.Secret, canonical, signature) {
			abort(c, apperror.ErrInvalidSignature())
			return
		}

		c.Set(CtxClient, client)
		c.Next()
	}
}

// RequireScope rejects service clients that do not hold scope. It must run after HMACAuth.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, ok := Client(c)
		if !ok || !client.HasScope(scope) {
			abort(c, apperror.ErrScopeDenied())
			return
		}
		c.Next()
	}
}

// JWTAuth validates participant bearer tokens.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			abort(c, apperror.ErrInvalidToken())
			return
		}

		claims, err := tokenSvc.Validate(authHeader[7:])
		if err != nil {
			log.Debug().Err(err).Msg("rejected bearer token")
			abort(c, apperror.ErrInvalidToken())
			return
		}

		c.Set(CtxParticipantID, claims.ParticipantID)
		c.Set(CtxAccountID, claims.AccountID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects participants without role. It must run after JWTAuth.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, _ := c.Get(CtxRole)
		if r, ok := got.(domain.Role); !ok || r != role {
			abort(c, apperror.ErrForbidden())
			return
		}
		c.Next()
	}
}

// AccountID returns the authenticated participant's account.
func AccountID(c *gin.Context) (uuid.UUID, bool) {
	return uuidValue(c, CtxAccountID)
}

// ParticipantID returns the authenticated participant.
func ParticipantID(c *gin.Context) (uuid.UUID, bool) {
	return uuidValue(c, CtxParticipantID)
}

// Client returns the authenticated service client.
func Client(c *gin.Context) (*ports.ServiceClient, bool) {
	v, ok := c.Get(CtxClient)
	if !ok {
		return nil, false
	}
	client, ok := v.(*ports.ServiceClient)
	return client, ok
}

func uuidValue(c *gin.Context, key string) (uuid.UUID, bool) {
	v, ok := c.Get(key)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func abort(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}

// RequestLogger tags the request with an id (honouring an inbound
// X-Request-ID) and logs one line per request once the handler returns.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(response.HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Set(response.RequestIDKey, requestID)
		c.Header(response.HeaderRequestID, requestID)

		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}
		if id, ok := AccountID(c); ok {
			event = event.Str("account_id", id.String())
		}

		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery turns a handler panic into a SYS_001 envelope.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("request_id", c.GetString(response.RequestIDKey)).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				abort(c, apperror.New("SYS_001", "Internal server error", http.StatusInternalServerError))
			}
		}()
		c.Next()
	}
}
