// Package admin implements the guarded dashboard API: one handler per view intent,
// each mapping onto a console operation.
package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/admin-console/admin-console/internal/console"
	"github.com/admin-console/admin-console/internal/media"
	"github.com/admin-console/admin-console/internal/storage"
)

// ImageUploader stores, reads back and discards promotional images
type ImageUploader interface {
	Upload(ctx context.Context, filename string, r io.Reader, size int64) (*media.Image, error)
	Discard(ctx context.Context, key string) error
	Fetch(ctx context.Context, key string) ([]byte, string, error)
	MaxBytes() int64
}

// Handlers serves the admin API from one Console
type Handlers struct {
	console  *console.Console
	uploader ImageUploader
}

// NewHandlers creates the admin handlers. uploader may be nil, which disables image uploads.
func NewHandlers(c *console.Console, uploader ImageUploader) *Handlers {
	return &Handlers{console: c, uploader: uploader}
}

// respondError maps a console, media or storage error onto an HTTP status.
// Precondition failures and remote failures get distinct statuses so the dashboard
// can tell "not allowed right now" apart from "the store did not answer".
func respondError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, console.ErrNotFound), errors.Is(err, media.ErrImageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, console.ErrActiveUpdateExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrObjectExists):
		c.JSON(http.StatusConflict, gin.H{"error": "an image with the same key already exists, retry the upload"})
	case errors.Is(err, media.ErrImageTooLarge), errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": media.ErrImageTooLarge.Error()})
	case errors.Is(err, console.ErrInvalidInput), errors.Is(err, media.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		slog.Error("admin request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "the data store request failed"})
	}
}

// pageParams reads page and per_page, leaving clamping to console.Paginate
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(console.DefaultPerPage)))
	return page, perPage
}

func pagination[T any](p console.Page[T]) gin.H {
	return gin.H{
		"page":        p.Page,
		"per_page":    p.PerPage,
		"total":       p.Total,
		"total_pages": p.TotalPages,
	}
}

// RefreshHandler refetches one entity collection from the store.
// A failed refetch answers 502 and the cached list stays as it was.
// POST /api/v1/admin/{entity}/refresh
func (h *Handlers) RefreshHandler(entity string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.console.Refetch(c.Request.Context(), entity); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entity": entity, "refreshed": true})
	}
}

// StatsHandler returns record counts per entity from the caches
// GET /api/v1/admin/stats
func (h *Handlers) StatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"stats": h.console.Stats(),
			"loading": gin.H{
				console.EntityUpdates:       h.console.UpdatesLoading(),
				console.EntityPromotions:    h.console.PromotionsLoading(),
				console.EntityOrganizations: h.console.OrganizationsLoading(),
				console.EntityUsers:         h.console.UsersLoading(),
			},
		})
	}
}

// Register mounts the admin routes on g. upload runs in front of the endpoints that
// accept image files, typically a stricter rate limit.
func (h *Handlers) Register(g *gin.RouterGroup, upload ...gin.HandlerFunc) {
	withUpload := func(hf gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, upload...), hf)
	}

	g.GET("/stats", h.StatsHandler())

	updates := g.Group("/updates")
	{
		updates.GET("", h.ListUpdatesHandler())
		updates.POST("", h.PublishUpdateHandler())
		updates.POST("/refresh", h.RefreshHandler(console.EntityUpdates))
		updates.GET("/:id", h.GetUpdateHandler())
		updates.POST("/:id/end", h.EndUpdateHandler())
	}

	promotions := g.Group("/promotions")
	{
		promotions.GET("", h.ListPromotionsHandler())
		promotions.POST("", withUpload(h.CreatePromotionHandler())...)
		promotions.POST("/refresh", h.RefreshHandler(console.EntityPromotions))
		promotions.GET("/:id", h.GetPromotionHandler())
		promotions.POST("/:id/end", h.EndPromotionHandler())
	}

	g.POST("/media/images", withUpload(h.UploadImageHandler())...)
	g.GET("/media/images/*key", h.GetImageHandler())

	orgs := g.Group("/organizations")
	{
		orgs.GET("", h.ListOrganizationsHandler())
		orgs.GET("/verified", h.ListVerifiedOrganizationsHandler())
		orgs.POST("/refresh", h.RefreshHandler(console.EntityOrganizations))
		orgs.GET("/:id", h.GetOrganizationHandler())
		orgs.PUT("/:id/verification", h.SetVerificationHandler())
	}

	users := g.Group("/users")
	{
		users.GET("", h.ListUsersHandler())
		users.POST("/refresh", h.RefreshHandler(console.EntityUsers))
		users.GET("/:id", h.GetUserHandler())
		users.POST("/:id/block-toggle", h.ToggleBlockHandler())
		users.DELETE("/:id", h.DeleteUserHandler())
	}
}
