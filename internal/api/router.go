// Package api wires together all HTTP routes of the admin console.
//
// Route groups:
//   - /health, /ready and /version are public probes.
//   - /api/v1/session/* is public and rate limited more strictly, since it is the
//     only place a password is checked.
//   - /api/v1/admin/* requires a session (cookie or bearer token) and records every
//     mutation in the audit trail.
//   - the local storage backend's files are served under storage.local.url_prefix.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/admin-console/admin-console/internal/api/admin"
	"github.com/admin-console/admin-console/internal/audit"
	"github.com/admin-console/admin-console/internal/auth"
	"github.com/admin-console/admin-console/internal/config"
	"github.com/admin-console/admin-console/internal/console"
	"github.com/admin-console/admin-console/internal/middleware"
	"github.com/admin-console/admin-console/internal/storage"
)

// Version is reported by /version. cmd/server sets it at startup.
var Version = "dev"

// Dependencies are the long-lived components the router serves from
type Dependencies struct {
	DB       *sqlx.DB
	Storage  storage.Storage
	Console  *console.Console
	Gate     *auth.Gate
	Uploader admin.ImageUploader
}

// BackgroundServices holds resources started by NewRouter that must be released
// on shutdown, after the HTTP server has drained.
type BackgroundServices struct {
	memoryLimiters []*middleware.MemoryLimiter
	redisLimiters  []*middleware.RedisLimiter
	auditSinks     *audit.Fanout
}

// Shutdown stops limiter cleanup loops, closes Redis connections and flushes
// the audit sinks
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.auditSinks != nil {
		if err := bg.auditSinks.Close(); err != nil {
			slog.Warn("failed to close audit sinks", "error", err)
		}
	}
	for _, rl := range bg.memoryLimiters {
		rl.Stop()
	}
	for _, rl := range bg.redisLimiters {
		if err := rl.Close(); err != nil {
			slog.Warn("failed to close rate limiter", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// newLimiter builds a Redis-backed limiter when a Redis URL is configured, else an in-memory one.
func (bg *BackgroundServices) newLimiter(redisURL string, rl middleware.RateLimitConfig) (middleware.Limiter, error) {
	if redisURL != "" {
		l, err := middleware.NewRedisLimiter(redisURL, "admin-console:rl:", rl)
		if err != nil {
			return nil, err
		}
		bg.redisLimiters = append(bg.redisLimiters, l)
		return l, nil
	}
	l := middleware.NewMemoryLimiter(rl)
	bg.memoryLimiters = append(bg.memoryLimiters, l)
	return l, nil
}

// rateLimit returns the middleware for scope, or nil when rate limiting is disabled.
func (bg *BackgroundServices) rateLimit(cfg config.RateLimitingConfig, scope string, rl middleware.RateLimitConfig) (gin.HandlerFunc, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	l, err := bg.newLimiter(cfg.RedisURL, rl)
	if err != nil {
		return nil, err
	}
	return middleware.RateLimitMiddleware(l, scope, rl.RequestsPerMinute), nil
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, *BackgroundServices, error) {
	sinks, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, err
	}
	router := gin.New()
	bg := &BackgroundServices{auditSinks: sinks}
	tls := cfg.Security.TLS.Enabled

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORS))

	router.GET("/health", healthCheckHandler(deps.DB))
	router.GET("/ready", readinessHandler(deps.DB, deps.Storage, deps.Console))
	router.GET("/version", versionHandler())

	apiLimitCfg := middleware.DefaultRateLimitConfig()
	if rl := cfg.Security.RateLimiting; rl.RequestsPerMinute > 0 {
		apiLimitCfg.RequestsPerMinute = rl.RequestsPerMinute
		if rl.Burst > 0 {
			apiLimitCfg.BurstSize = rl.Burst
		}
	}
	apiLimit, err := bg.rateLimit(cfg.Security.RateLimiting, "api", apiLimitCfg)
	if err != nil {
		return nil, nil, err
	}
	loginLimit, err := bg.rateLimit(cfg.Security.RateLimiting, "login", middleware.LoginRateLimitConfig())
	if err != nil {
		return nil, nil, err
	}
	uploadLimit, err := bg.rateLimit(cfg.Security.RateLimiting, "upload", middleware.UploadRateLimitConfig())
	if err != nil {
		return nil, nil, err
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(tls)))

	sessionHandlers := admin.NewSessionHandlers(deps.Gate, cfg.Session)
	session := v1.Group("/session")
	{
		session.GET("", sessionHandlers.SessionHandler())
		session.POST("/logout", sessionHandlers.LogoutHandler())
		if loginLimit != nil {
			session.POST("/login", loginLimit, sessionHandlers.LoginHandler())
		} else {
			session.POST("/login", sessionHandlers.LoginHandler())
		}
	}

	adminGroup := v1.Group("/admin")
	if apiLimit != nil {
		adminGroup.Use(apiLimit)
	}
	adminGroup.Use(middleware.RequireSession(deps.Gate, cfg.Session.CookieName, cfg.Server.EntryPath))
	adminGroup.Use(middleware.AuditMiddleware(bg.auditSinks))

	var uploadMW []gin.HandlerFunc
	if uploadLimit != nil {
		uploadMW = append(uploadMW, uploadLimit)
	}
	admin.NewHandlers(deps.Console, deps.Uploader).Register(adminGroup, uploadMW...)

	if cfg.Storage.DefaultBackend == "local" {
		media := router.Group(cfg.Storage.Local.URLPrefix)
		media.Use(middleware.SecurityHeadersMiddleware(middleware.MediaSecurityHeadersConfig(tls)))
		media.Static("/", cfg.Storage.Local.BasePath)
	}

	return router, bg, nil
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler reports whether the service can serve the dashboard: the database
// answers and the storage backend is reachable. Collections still loading are
// reported but do not fail the probe.
func readinessHandler(db *sqlx.DB, storageBackend storage.Storage, c *console.Console) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(ctx.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// A known-absent key exercises credentials and connectivity without writing anything.
		if _, err := storageBackend.Exists(ctx.Request.Context(), ".readiness-probe"); err != nil {
			checks["storage"] = "unhealthy"
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		ctx.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"loading": gin.H{
				console.EntityUpdates:       c.UpdatesLoading(),
				console.EntityPromotions:    c.PromotionsLoading(),
				console.EntityOrganizations: c.OrganizationsLoading(),
				console.EntityUsers:         c.UsersLoading(),
			},
			"time": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the build version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}
