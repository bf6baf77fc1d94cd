package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin-console/admin-console/internal/auth"
	"github.com/admin-console/admin-console/internal/config"
)

func newSessionRouter(t *testing.T, ttl time.Duration) *gin.Engine {
	t.Helper()
	sessionCfg := config.SessionConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		CookieName: "admin_auth",
		TTL:        ttl,
	}
	gate, err := auth.NewGate(config.AdminConfig{Email: "root@example.org", Password: "hunter22"}, sessionCfg)
	require.NoError(t, err)

	h := NewSessionHandlers(gate, sessionCfg)
	r := gin.New()
	r.POST("/api/v1/session/login", h.LoginHandler())
	r.POST("/api/v1/session/logout", h.LogoutHandler())
	r.GET("/api/v1/session", h.SessionHandler())
	return r
}

func login(r *gin.Engine, email, password string) *httptest.ResponseRecorder {
	b, _ := json.Marshal(LoginRequest{Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/login", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "admin_auth" {
			return c
		}
	}
	return nil
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantCode int
	}{
		{"valid", "root@example.org", "hunter22", http.StatusOK},
		{"wrong password", "root@example.org", "nope", http.StatusUnauthorized},
		{"wrong email", "other@example.org", "hunter22", http.StatusUnauthorized},
		{"email case differs", "Root@example.org", "hunter22", http.StatusUnauthorized},
		{"empty", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := login(newSessionRouter(t, 0), tt.email, tt.password)
			assert.Equal(t, tt.wantCode, w.Code)

			if tt.wantCode != http.StatusOK {
				assert.Equal(t, "invalid email or password", decode(t, w)["error"])
				assert.Nil(t, sessionCookie(w))
				return
			}
			c := sessionCookie(w)
			require.NotNil(t, c)
			assert.True(t, c.HttpOnly)
			assert.Equal(t, int(persistentCookieAge.Seconds()), c.MaxAge)
			assert.Equal(t, c.Value, decode(t, w)["token"])
		})
	}
}

func TestLoginHandler_TTLSetsCookieAge(t *testing.T) {
	w := login(newSessionRouter(t, 2*time.Hour), "root@example.org", "hunter22")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7200, sessionCookie(w).MaxAge)
	assert.Equal(t, float64(7200), decode(t, w)["expires_in"])
}

func TestSessionHandler(t *testing.T) {
	r := newSessionRouter(t, 0)
	token := sessionCookie(login(r, "root@example.org", "hunter22")).Value

	check := func(prepare func(*http.Request)) map[string]any {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
		prepare(req)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		return decode(t, w)
	}

	assert.Equal(t, true, check(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "admin_auth", Value: token})
	})["authenticated"])
	assert.Equal(t, true, check(func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})["authenticated"])
	assert.Equal(t, false, check(func(*http.Request) {})["authenticated"])
	assert.Equal(t, false, check(func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "admin_auth", Value: "garbage"})
	})["authenticated"])
}

func TestLogoutHandler(t *testing.T) {
	r := newSessionRouter(t, 0)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/session/logout", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	c := sessionCookie(w)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}
