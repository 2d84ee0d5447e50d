package response

import (
	"errors"
	"net/http"
	"time"

	"civic-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey is the gin context key holding the request id.
	RequestIDKey = "request_id"
	// HeaderRequestID carries the request id in and out.
	HeaderRequestID = "X-Request-ID"
	// HeaderReplayed marks a response served from the idempotency log.
	HeaderReplayed = "Idempotent-Replayed"
)

// SuccessResponse wraps every 2xx body.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse wraps every 4xx and 5xx body.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

func OK(c *gin.Context, data interface{}) {
	success(c, http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	success(c, http.StatusCreated, data)
}

// Mutation answers a ledger write: 201 when it was applied now, 200 with
// the replay header when the idempotency log answered instead.
func Mutation(c *gin.Context, replayed bool, data interface{}) {
	if replayed {
		c.Header(HeaderReplayed, "true")
		success(c, http.StatusOK, data)
		return
	}
	success(c, http.StatusCreated, data)
}

// Error renders err. Anything that is not an *apperror.AppError becomes
// SYS_000 and is attached to the gin context for the request logger.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.New("SYS_000", "Internal server error", http.StatusInternalServerError)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
		RequestID: RequestID(c),
		Timestamp: now(),
	})
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: RequestID(c),
		Timestamp: now(),
	})
}

// RequestID returns the id assigned by the request logger, minting one
// when the handler runs outside that middleware.
func RequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Set(RequestIDKey, id)
	return id
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
