package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/admin-console/admin-console/internal/auth"
)

// SessionKey is the gin.Context key holding the *auth.Session of the request.
const SessionKey = "session"

// Authenticator verifies a session token.
type Authenticator interface {
	Authenticate(token string) (*auth.Session, error)
}

// SessionToken extracts the session token from a Bearer header or the session cookie.
// The header wins when both are present.
func SessionToken(c *gin.Context, cookieName string) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); tok != "" {
			return tok
		}
	}
	if tok, err := c.Cookie(cookieName); err == nil {
		return tok
	}
	return ""
}

// RequireSession blocks every request that does not carry a valid session.
// Browsers asking for HTML are redirected to entryPath; API clients get 401.
func RequireSession(authn Authenticator, cookieName, entryPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			denySession(c, entryPath, "Authentication required")
			return
		}

		session, err := authn.Authenticate(token)
		if err != nil {
			denySession(c, entryPath, "Session is invalid or expired")
			return
		}

		c.Set(SessionKey, session)
		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

func denySession(c *gin.Context, entryPath, msg string) {
	if wantsHTML(c) && entryPath != "" {
		c.Redirect(http.StatusFound, entryPath)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func wantsHTML(c *gin.Context) bool {
	return c.Request.Method == http.MethodGet && strings.Contains(c.GetHeader("Accept"), "text/html")
}
