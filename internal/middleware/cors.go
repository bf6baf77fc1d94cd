package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/admin-console/admin-console/internal/config"
)

var defaultCORSMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// CORSMiddleware allows a dashboard served from another origin to call the API
// with the session cookie. "*" reflects any origin; the literal wildcard is never
// sent because browsers refuse it on credentialed requests. With no origins
// configured the console is same-origin only and the middleware is a no-op.
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	if len(cfg.AllowedOrigins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	allowAny := false
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAny = true
		}
		allowed[o] = struct{}{}
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if allowAny {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
		AllowMethods:     methods,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader, "Retry-After", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	})
}
