package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/admin-console/admin-console/internal/config"
	"github.com/admin-console/admin-console/internal/media"
)

// limitBody caps the request body at the image limit plus form overhead. It answers
// 413 itself and returns false when the declared length is already over the cap.
func (h *Handlers) limitBody(c *gin.Context) bool {
	limit := int64(config.DefaultMaxImageBytes) + multipartOverhead
	if h.uploader != nil {
		limit = h.uploader.MaxBytes() + multipartOverhead
	}
	if c.Request.ContentLength > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": media.ErrImageTooLarge.Error()})
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	return true
}

func respondFormError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": media.ErrImageTooLarge.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data: " + err.Error()})
}

// uploadFormImage uploads the optional "image" form file. It returns nil and true when
// no file was chosen, and false after writing an error response when the upload failed.
func (h *Handlers) uploadFormImage(c *gin.Context) (*media.Image, bool) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		respondFormError(c, err)
		return nil, false
	}
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads are not configured"})
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		respondFormError(c, err)
		return nil, false
	}
	defer f.Close()

	img, err := h.uploader.Upload(c.Request.Context(), fh.Filename, f, fh.Size)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return img, true
}

// discardImage removes an image whose record was never saved. The request may
// already be cancelled, so the delete runs detached from it.
func (h *Handlers) discardImage(c *gin.Context, img *media.Image) {
	if err := h.uploader.Discard(context.WithoutCancel(c.Request.Context()), img.Key); err != nil {
		slog.Error("failed to discard orphaned image", "key", img.Key, "error", err)
	}
}

// @Summary      Upload promotional image
// @Description  Stores an image under a fresh collision-resistant key and returns its public URL.
// @Tags         Promotions
// @Accept       multipart/form-data
// @Produce      json
// @Param        image  formData  file  true  "Image file, 5 MiB max"
// @Success      201  {object}  map[string]interface{}  "url, key, checksum"
// @Failure      400  {object}  map[string]interface{}  "Missing file or not an image"
// @Failure      413  {object}  map[string]interface{}  "Image too large"
// @Failure      502  {object}  map[string]interface{}  "Storage failure"
// @Router       /api/v1/admin/media/images [post]
// UploadImageHandler uploads an image on its own
// POST /api/v1/admin/media/images
func (h *Handlers) UploadImageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.limitBody(c) {
			return
		}
		if _, err := c.FormFile("image"); errors.Is(err, http.ErrMissingFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}
		img, ok := h.uploadFormImage(c)
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, gin.H{"url": img.URL, "key": img.Key, "checksum": img.Checksum})
	}
}

// GetImageHandler streams a stored image back through the API, for previews
// when the bucket is not publicly readable.
// GET /api/v1/admin/media/images/{namespace}/{key}
func (h *Handlers) GetImageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.uploader == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads are not configured"})
			return
		}
		key := strings.TrimPrefix(c.Param("key"), "/")
		data, contentType, err := h.uploader.Fetch(c.Request.Context(), key)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Cache-Control", "private, max-age=3600")
		c.Data(http.StatusOK, contentType, data)
	}
}
