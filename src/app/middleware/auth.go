package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"gptuessr/src/app/http/response"
	"gptuessr/src/core/ports"
)

const (
	// SubjectIDKey is the context key holding the caller's subject id.
	SubjectIDKey = "subject_id"

	// SessionIDKey is the context key holding the caller's session id.
	SessionIDKey = "session_id"
)

// Auth requires a valid "Authorization: Bearer <token>" header. On success
// the verified subject and session ids are stored in the context.
func Auth(verifier ports.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := GetRequestID(c)

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "missing bearer token", requestID)
			c.Abort()
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			_ = c.Error(err)
			response.Unauthorized(c, "invalid or expired token", requestID)
			c.Abort()
			return
		}

		c.Set(SubjectIDKey, claims.SubjectID)
		c.Set(SessionIDKey, claims.SessionID)
		c.Next()
	}
}

// GetSubjectID returns the authenticated caller, or "" outside Auth.
func GetSubjectID(c *gin.Context) string {
	return c.GetString(SubjectIDKey)
}

// GetSessionID returns the caller's session id, or "" when the token had none.
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
