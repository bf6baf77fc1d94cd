package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/admin-console/admin-console/internal/console"
)

// PublishUpdateRequest is the body of POST /api/v1/admin/updates
type PublishUpdateRequest struct {
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// @Summary      List updates
// @Description  Cached updates, newest first, with the collection's loading flag.
// @Tags         Updates
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "updates: []console.Update, loading: bool"
// @Router       /api/v1/admin/updates [get]
// ListUpdatesHandler lists updates
// GET /api/v1/admin/updates
func (h *Handlers) ListUpdatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{
			"updates": h.console.Updates(),
			"loading": h.console.UpdatesLoading(),
		}
		if u, ok := h.console.ActiveUpdate(); ok {
			resp["active_update_id"] = u.ID
		} else {
			resp["active_update_id"] = nil
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetUpdateHandler returns one cached update
// GET /api/v1/admin/updates/:id
func (h *Handlers) GetUpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := h.console.FindUpdate(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"update": u})
	}
}

// @Summary      Publish update
// @Description  Publishes a new active update. Fails with 409 while another update is active.
// @Tags         Updates
// @Accept       json
// @Produce      json
// @Param        body  body  PublishUpdateRequest  true  "Update"
// @Success      201  {object}  map[string]interface{}  "update: console.Update"
// @Failure      400  {object}  map[string]interface{}  "Invalid input"
// @Failure      409  {object}  map[string]interface{}  "An update is already active"
// @Failure      502  {object}  map[string]interface{}  "Data store failure"
// @Router       /api/v1/admin/updates [post]
// PublishUpdateHandler publishes an update
// POST /api/v1/admin/updates
func (h *Handlers) PublishUpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PublishUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		u, err := h.console.PublishUpdate(c.Request.Context(), console.UpdateInput{
			Title:       req.Title,
			Subtitle:    req.Subtitle,
			Description: req.Description,
			Features:    req.Features,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"update": u})
	}
}

// EndUpdateHandler ends an update
// POST /api/v1/admin/updates/:id/end
func (h *Handlers) EndUpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := h.console.EndUpdate(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		u, _ := h.console.FindUpdate(id)
		c.JSON(http.StatusOK, gin.H{"update": u})
	}
}
