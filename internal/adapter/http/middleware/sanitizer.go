package middleware

import (
	"mime"
	"net/http"

	"civic-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// MaxBodySize caps the request body. Reads past the cap fail, and handlers
// binding the body answer 400.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// RequireJSON rejects POST bodies that are not application/json. Requests
// without a body pass.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.ContentLength == 0 {
			c.Next()
			return
		}
		mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil || mt != "application/json" {
			abort(c, apperror.New("REQ_002", "Content-Type must be application/json", http.StatusUnsupportedMediaType))
			return
		}
		c.Next()
	}
}
