package middleware

import (
	"fmt"
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/image-hosting/internal/api/respond"
	"github.com/aliskhannn/image-hosting/internal/auth"
)

const callerContextKey = "caller"

// Auth rejects requests the authorizer does not vouch for and stores the
// caller identity in the request context.
func Auth(a auth.Authorizer) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		caller, ok := a.Authorize(c.Request)
		if !ok {
			respond.Fail(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}

		c.Set(callerContextKey, caller)
		c.Next()
	}
}

// Caller returns the authenticated caller identity stored by Auth.
func Caller(c *ginext.Context) (string, bool) {
	value, exists := c.Get(callerContextKey)
	if !exists {
		return "", false
	}

	caller, ok := value.(string)
	return caller, ok
}
