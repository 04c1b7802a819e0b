// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication backed by the in-process
// credential manager. The middleware is transport-thin: it extracts the
// token, asks the resolver who owns it, and stashes the account identity in
// the Gin context under "accountID" for downstream handlers, loggers, and
// rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// accountIDKey is the Gin context key under which the authenticated account
// id is stored. Shared with the logging, rate limiting, and idempotency
// middleware in this package.
const accountIDKey = "accountID"

// TokenResolver maps a bearer token to the owning account id. The second
// return value is false for unknown or expired tokens.
type TokenResolver func(token string) (accountID string, ok bool)

// BearerToken extracts the token from the Authorization header. It accepts
// the "Bearer <token>" scheme (case-insensitive) and returns "" when the
// header is absent or malformed.
func BearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// TokenAuth returns a Gin middleware that requires a valid bearer token.
//
// Behavior:
//   - Missing or malformed Authorization header: 401 with a compact body.
//   - Unknown or expired token: 401. Expired tokens are indistinguishable
//     from unknown ones at this layer; the resolver evicts them lazily.
//   - Valid token: the owning account id is stored under "accountID" and
//     the chain continues.
func TokenAuth(resolve TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "missing bearer token",
			})
			return
		}
		accountID, valid := resolve(token)
		if !valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "invalid or expired token",
			})
			return
		}
		c.Set(accountIDKey, accountID)
		c.Next()
	}
}

// AccountID returns the authenticated account id stored by TokenAuth, or ""
// when the request is anonymous.
func AccountID(c *gin.Context) string {
	return accountIDFromCtx(c)
}
