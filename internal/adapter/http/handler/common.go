package handler

import (
	"civic-ledger/internal/adapter/http/dto"
	"civic-ledger/internal/adapter/http/middleware"
	"civic-ledger/pkg/apperror"
	"civic-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// bind decodes and validates the JSON body into req, then sanitizes it.
// It answers 400 and returns false on failure.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

// accountFromToken answers 401 when the JWT middleware set no account.
func accountFromToken(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses the :id route parameter, answering 400 when it is malformed.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
