package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/admin-console/admin-console/internal/console"
)

// SetVerificationRequest is the body of PUT /api/v1/admin/organizations/:id/verification
type SetVerificationRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// organizationView adds the derived map link to an organization
type organizationView struct {
	console.Organization
	MapURL string `json:"map_url,omitempty"`
}

func viewOrganization(o console.Organization) organizationView {
	return organizationView{Organization: o, MapURL: o.MapURL()}
}

func viewOrganizations(orgs []console.Organization) []organizationView {
	out := make([]organizationView, len(orgs))
	for i, o := range orgs {
		out[i] = viewOrganization(o)
	}
	return out
}

// @Summary      List organizations
// @Description  Cached organizations, newest first. q filters on name, contact email and tags.
// @Tags         Organizations
// @Produce      json
// @Param        q         query  string  false  "Search text"
// @Param        page      query  int     false  "Page number (default 1)"
// @Param        per_page  query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "organizations, pagination, loading"
// @Router       /api/v1/admin/organizations [get]
// ListOrganizationsHandler lists organizations
// GET /api/v1/admin/organizations?q=&page=1&per_page=20
func (h *Handlers) ListOrganizationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage := pageParams(c)
		p := console.Paginate(h.console.SearchOrganizations(c.Query("q")), page, perPage)

		c.JSON(http.StatusOK, gin.H{
			"organizations": viewOrganizations(p.Items),
			"pagination":    pagination(p),
			"loading":       h.console.OrganizationsLoading(),
		})
	}
}

// ListVerifiedOrganizationsHandler lists verified organizations only
// GET /api/v1/admin/organizations/verified
func (h *Handlers) ListVerifiedOrganizationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"organizations": viewOrganizations(h.console.VerifiedOrganizations()),
			"loading":       h.console.OrganizationsLoading(),
		})
	}
}

// GetOrganizationHandler returns one cached organization
// GET /api/v1/admin/organizations/:id
func (h *Handlers) GetOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		o, ok := h.console.FindOrganization(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"organization": viewOrganization(o)})
	}
}

// @Summary      Set organization verification
// @Description  Sets the verified flag. Setting the current value again succeeds.
// @Tags         Organizations
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "Organization ID"
// @Param        body  body  SetVerificationRequest  true  "Verification flag"
// @Success      200  {object}  map[string]interface{}  "organization"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Failure      502  {object}  map[string]interface{}  "Data store failure"
// @Router       /api/v1/admin/organizations/{id}/verification [put]
// SetVerificationHandler sets an organization's verified flag
// PUT /api/v1/admin/organizations/:id/verification
func (h *Handlers) SetVerificationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetVerificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: verified is required"})
			return
		}

		o, err := h.console.SetOrganizationVerified(c.Request.Context(), c.Param("id"), *req.Verified)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"organization": viewOrganization(o)})
	}
}
