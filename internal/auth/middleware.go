package auth

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omip-benchmark/internal/api/models"
	"omip-benchmark/internal/apperr"
)

const (
	AdminKeyHeader = "X-Admin-Key"

	// SessionEmailKey is the gin context key holding the verified email.
	SessionEmailKey = "sessionEmail"
)

// AdminKey accepts requests carrying the configured key in the X-Admin-Key
// header or the key query parameter. With no key configured every request is
// rejected.
func AdminKey(expected string, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if expected == "" {
		log.Warn("admin key not configured, admin routes are disabled")
	}
	return func(c *gin.Context) {
		got := c.GetHeader(AdminKeyHeader)
		if got == "" {
			got = c.Query("key")
		}
		if !KeyMatches(expected, got) {
			log.Warn("admin request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			abort(c, apperr.Unauthorized("INVALID_ADMIN_KEY", "missing or invalid admin key"))
			return
		}
		c.Next()
	}
}

// KeyMatches compares in constant time. An empty expected key never matches.
func KeyMatches(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// RequireSession rejects requests without a valid session cookie and stores
// the session's email in the gin context.
func RequireSession(tokens *Tokens, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, ok := SessionEmail(c, tokens, cookieName)
		if !ok {
			abort(c, apperr.Unauthorized("EMAIL_NOT_CONFIRMED", "email confirmation required"))
			return
		}
		c.Set(SessionEmailKey, email)
		c.Next()
	}
}

// SessionEmail returns the email of a valid session cookie, if any.
func SessionEmail(c *gin.Context, tokens *Tokens, cookieName string) (string, bool) {
	raw, err := c.Cookie(cookieName)
	if err != nil || raw == "" {
		return "", false
	}
	email, err := tokens.ParseSession(raw)
	if err != nil {
		return "", false
	}
	return email, true
}

// SameEmail reports whether a request's email belongs to the session.
func SameEmail(c *gin.Context, email string) bool {
	v, ok := c.Get(SessionEmailKey)
	if !ok {
		return false
	}
	s, _ := v.(string)
	return s != "" && s == NormalizeEmail(email)
}

func abort(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(models.StatusFor(err.Kind), models.NewErrorResponse(err))
}
