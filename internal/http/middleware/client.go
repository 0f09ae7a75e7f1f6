package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderClientID names the caller (a publishing bot, a scheduler, a person
// running the CLI). It scopes idempotency keys and rate-limit buckets.
const HeaderClientID = "X-Client-ID"

// AnonymousClient is used when no client identity was supplied.
const AnonymousClient = "anonymous"

const ctxKeyClientID = "clientID"

// ClientIdentity copies a non-empty X-Client-ID header into the Gin context.
// It does not authenticate anything.
func ClientIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(HeaderClientID)); id != "" {
			c.Set(ctxKeyClientID, id)
		}
		c.Next()
	}
}

// ClientID returns the caller identity stashed by ClientIdentity, or
// AnonymousClient.
func ClientID(c *gin.Context) string {
	if id, ok := explicitClientID(c); ok {
		return id
	}
	return AnonymousClient
}

func explicitClientID(c *gin.Context) (string, bool) {
	if c == nil {
		return "", false
	}
	if v, ok := c.Get(ctxKeyClientID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
