package handlers

import (
	"net/http"

	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/storage"

	"github.com/gin-gonic/gin"
)

// MediaHandler handles product image and voice note uploads
type MediaHandler struct {
	media    MediaAPI
	maxBytes int64
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(media MediaAPI, maxBytes int64) *MediaHandler {
	return &MediaHandler{media: media, maxBytes: maxBytes}
}

// Upload stores the multipart "file" field
// @Summary Upload media
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image or audio file"
// @Success 201 {object} storage.Object
// @Router /api/v1/media [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	data, filename, contentType, ok := readUpload(c, "file", h.maxBytes)
	if !ok {
		return
	}

	obj, err := h.media.Upload(c.Request.Context(), userID, filename, contentType, data)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, obj, "")
}

// Delete removes an uploaded object
// @Summary Delete media
// @Tags Media
// @Produce json
// @Param publicId query string true "Public ID returned by upload"
// @Param kind query string false "image or audio" default(image)
// @Success 200 {object} models.SuccessResponse
// @Router /api/v1/media [delete]
func (h *MediaHandler) Delete(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	kind := storage.Kind(c.DefaultQuery("kind", string(storage.KindImage)))

	err := h.media.Delete(c.Request.Context(), userID, role == models.RoleAdmin, c.Query("publicId"), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Media deleted"})
}
