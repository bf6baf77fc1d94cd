package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/admin-console/admin-console/internal/console"
	"github.com/admin-console/admin-console/internal/media"
)

// multipartOverhead is the allowance for form fields and boundaries on top of the image.
const multipartOverhead = 1 << 20

// CreatePromotionRequest is the JSON body of POST /api/v1/admin/promotions.
// Multipart submissions use the same field names plus an optional "image" file.
type CreatePromotionRequest struct {
	Organizer      string `json:"organizer" form:"organizer"`
	EventDetails   string `json:"event_details" form:"event_details"`
	AdditionalInfo string `json:"additional_info" form:"additional_info"`
	URL            string `json:"url" form:"url"`
	ImageURL       string `json:"image_url" form:"image_url"`
}

func (r CreatePromotionRequest) input() console.PromotionInput {
	return console.PromotionInput{
		Organizer:      r.Organizer,
		EventDetails:   r.EventDetails,
		AdditionalInfo: r.AdditionalInfo,
		URL:            r.URL,
		ImageURL:       r.ImageURL,
	}
}

// ListPromotionsHandler lists promotions. ?status=active keeps only active ones.
// GET /api/v1/admin/promotions
func (h *Handlers) ListPromotionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		items := h.console.Promotions()
		if c.Query("status") == string(console.StatusActive) {
			items = h.console.ActivePromotions()
		}
		c.JSON(http.StatusOK, gin.H{
			"promotions": items,
			"loading":    h.console.PromotionsLoading(),
		})
	}
}

// GetPromotionHandler returns one cached promotion
// GET /api/v1/admin/promotions/:id
func (h *Handlers) GetPromotionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := h.console.FindPromotion(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"promotion": p})
	}
}

// @Summary      Create promotion
// @Description  Creates an active promotion. A multipart "image" is uploaded first; when the upload fails the promotion is not created, and when the create fails the image is removed again.
// @Tags         Promotions
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        organizer        formData  string  true   "Organizer name"
// @Param        event_details    formData  string  true   "Event details"
// @Param        additional_info  formData  string  false  "Additional information"
// @Param        url              formData  string  false  "Event URL (http or https)"
// @Param        image            formData  file    false  "Promotional image, 5 MiB max"
// @Success      201  {object}  map[string]interface{}  "promotion: console.Promotion"
// @Failure      400  {object}  map[string]interface{}  "Invalid input or not an image"
// @Failure      413  {object}  map[string]interface{}  "Image too large"
// @Failure      502  {object}  map[string]interface{}  "Storage or data store failure"
// @Router       /api/v1/admin/promotions [post]
// CreatePromotionHandler creates a promotion
// POST /api/v1/admin/promotions
func (h *Handlers) CreatePromotionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreatePromotionRequest
		multipart := strings.HasPrefix(c.ContentType(), "multipart/form-data")

		if multipart {
			if !h.limitBody(c) {
				return
			}
			if err := c.ShouldBind(&req); err != nil {
				respondFormError(c, err)
				return
			}
		} else if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		// Reject bad form input before anything is written to storage.
		if err := req.input().Validate(); err != nil {
			respondError(c, err)
			return
		}

		var img *media.Image
		if multipart {
			var ok bool
			if img, ok = h.uploadFormImage(c); !ok {
				return
			}
			if img != nil {
				req.ImageURL = img.URL
			}
		}

		p, err := h.console.CreatePromotion(c.Request.Context(), req.input())
		if err != nil {
			if img != nil {
				h.discardImage(c, img)
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"promotion": p})
	}
}

// EndPromotionHandler ends a promotion
// POST /api/v1/admin/promotions/:id/end
func (h *Handlers) EndPromotionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := h.console.EndPromotion(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		p, _ := h.console.FindPromotion(id)
		c.JSON(http.StatusOK, gin.H{"promotion": p})
	}
}
