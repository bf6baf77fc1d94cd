package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/admin-console/admin-console/internal/console"
)

// @Summary      List users
// @Description  Cached user profiles, newest first. q filters on email, full name and username.
// @Tags         Users
// @Produce      json
// @Param        q         query  string  false  "Search text"
// @Param        page      query  int     false  "Page number (default 1)"
// @Param        per_page  query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "users, pagination, loading"
// @Router       /api/v1/admin/users [get]
// ListUsersHandler lists users
// GET /api/v1/admin/users?q=&page=1&per_page=20
func (h *Handlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage := pageParams(c)
		p := console.Paginate(h.console.SearchUsers(c.Query("q")), page, perPage)

		c.JSON(http.StatusOK, gin.H{
			"users":      p.Items,
			"pagination": pagination(p),
			"loading":    h.console.UsersLoading(),
		})
	}
}

// GetUserHandler returns one cached user profile
// GET /api/v1/admin/users/:id
func (h *Handlers) GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := h.console.FindUser(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": u})
	}
}

// ToggleBlockHandler flips a user's block flag
// POST /api/v1/admin/users/:id/block-toggle
func (h *Handlers) ToggleBlockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := h.console.ToggleUserBlock(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": u})
	}
}

// @Summary      Delete user
// @Description  Hard-deletes a user profile. Deleting an id that no longer exists succeeds.
// @Tags         Users
// @Param        id  path  string  true  "User ID"
// @Success      204  "Deleted"
// @Failure      502  {object}  map[string]interface{}  "Data store failure"
// @Router       /api/v1/admin/users/{id} [delete]
// DeleteUserHandler removes a user profile
// DELETE /api/v1/admin/users/:id
func (h *Handlers) DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.console.RemoveUser(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
