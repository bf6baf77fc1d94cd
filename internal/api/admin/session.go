package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/admin-console/admin-console/internal/auth"
	"github.com/admin-console/admin-console/internal/config"
	"github.com/admin-console/admin-console/internal/middleware"
)

// persistentCookieAge keeps the session across browser restarts when no TTL is configured.
// Browsers cap cookie lifetimes at 400 days.
const persistentCookieAge = 400 * 24 * time.Hour

// LoginRequest is the body of POST /api/v1/session/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionHandlers implements login, logout and session lookup
type SessionHandlers struct {
	gate   *auth.Gate
	cookie config.SessionConfig
}

// NewSessionHandlers creates the session handlers
func NewSessionHandlers(gate *auth.Gate, cookie config.SessionConfig) *SessionHandlers {
	return &SessionHandlers{gate: gate, cookie: cookie}
}

func (h *SessionHandlers) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.CookieName, value, maxAge, "/", "", h.cookie.CookieSecure, true)
}

// @Summary      Log in
// @Description  Checks the root-admin credential pair. On success sets the HttpOnly session cookie and returns the token for API clients.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        body  body  LoginRequest  true  "Credentials"
// @Success      200  {object}  map[string]interface{}  "authenticated: true, token"
// @Failure      401  {object}  map[string]interface{}  "invalid email or password"
// @Router       /api/v1/session/login [post]
// LoginHandler authenticates the operator
// POST /api/v1/session/login
func (h *SessionHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidCredentials.Error()})
			return
		}

		token, err := h.gate.Login(req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		age := h.gate.TTL()
		if age <= 0 {
			age = persistentCookieAge
		}
		h.setCookie(c, token, int(age.Seconds()))

		resp := gin.H{"authenticated": true, "token": token}
		if ttl := h.gate.TTL(); ttl > 0 {
			resp["expires_in"] = int(ttl.Seconds())
		}
		c.JSON(http.StatusOK, resp)
	}
}

// LogoutHandler clears the session cookie
// POST /api/v1/session/logout
func (h *SessionHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.setCookie(c, "", -1)
		c.Status(http.StatusNoContent)
	}
}

// SessionHandler reports whether the caller holds a valid session. It never fails:
// a missing or invalid token is reported as authenticated=false.
// GET /api/v1/session
func (h *SessionHandlers) SessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.SessionToken(c, h.cookie.CookieName)
		if token != "" {
			if s, err := h.gate.Authenticate(token); err == nil {
				c.JSON(http.StatusOK, s)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
	}
}
