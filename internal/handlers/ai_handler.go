package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"artisan-marketplace/internal/mcptools"
	"artisan-marketplace/internal/models"

	"github.com/gin-gonic/gin"
)

// AIHandler exposes the AI tools over REST
type AIHandler struct {
	ai       AIAPI
	maxBytes int64
	pager    Pager
}

// NewAIHandler creates a new AIHandler
func NewAIHandler(ai AIAPI, maxBytes int64, pager Pager) *AIHandler {
	return &AIHandler{ai: ai, maxBytes: maxBytes, pager: pagerOrDefault(pager)}
}

// Status reports whether generation is configured
// @Summary AI status
// @Tags AI
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /api/v1/ai/status [get]
func (h *AIHandler) Status(c *gin.Context) {
	respondOK(c, gin.H{"available": h.ai.Available()})
}

// Content drafts product copy
// @Summary Generate product content
// @Tags AI
// @Accept json
// @Produce json
// @Param request body models.ContentRequest true "Product facts"
// @Success 200 {object} models.ContentResult
// @Router /api/v1/ai/content [post]
func (h *AIHandler) Content(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req models.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}
	out, err := h.ai.Content(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, out)
}

// Pricing suggests a price range
// @Summary Suggest price
// @Tags AI
// @Accept json
// @Produce json
// @Param request body models.PricingRequest true "Costs and context"
// @Success 200 {object} models.PricingResult
// @Router /api/v1/ai/pricing [post]
func (h *AIHandler) Pricing(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req models.PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}
	out, err := h.ai.Pricing(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, out)
}

// Marketing writes a social post
// @Summary Write marketing copy
// @Tags AI
// @Accept json
// @Produce json
// @Param request body models.MarketingRequest true "Product and platform"
// @Success 200 {object} models.MarketingResult
// @Router /api/v1/ai/marketing [post]
func (h *AIHandler) Marketing(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req models.MarketingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}
	out, err := h.ai.Marketing(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, out)
}

// Image describes an image by URL or generates one from a prompt
// @Summary Describe or generate image
// @Tags AI
// @Accept json
// @Produce json
// @Param request body models.ImageRequest true "Mode with URL or prompt"
// @Success 200 {object} models.ImageResult
// @Router /api/v1/ai/image [post]
func (h *AIHandler) Image(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req models.ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}
	out, err := h.ai.Image(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, out)
}

// DescribeUpload describes an uploaded photo
// @Summary Describe uploaded image
// @Tags AI
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Product photo"
// @Success 200 {object} models.ImageResult
// @Router /api/v1/ai/image/describe [post]
func (h *AIHandler) DescribeUpload(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	data, _, contentType, ok := readUpload(c, "file", h.maxBytes)
	if !ok {
		return
	}
	out, err := h.ai.DescribeImage(c.Request.Context(), userID, data, contentType)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, out)
}

// Voice transcribes a voice note and drafts a listing
// @Summary Voice to listing
// @Tags AI
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Audio clip"
// @Param draftListing formData bool false "Draft a listing from the transcript" default(true)
// @Success 200 {object} models.VoiceResult
// @Router /api/v1/ai/voice [post]
func (h *AIHandler) Voice(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	data, _, contentType, ok := readUpload(c, "file", h.maxBytes)
	if !ok {
		return
	}
	draft := true
	if raw := c.PostForm("draftListing"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "VALIDATION_ERROR", "draftListing must be true or false")
			return
		}
		draft = v
	}

	out, err := h.ai.Voice(c.Request.Context(), userID, data, contentType, draft)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, out)
}

// History lists the caller's past generations
// @Summary Generation history
// @Tags AI
// @Produce json
// @Param tool query string false "content, pricing, marketing, image or voice"
// @Success 200 {array} models.AIGeneration
// @Router /api/v1/ai/history [get]
func (h *AIHandler) History(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var tool *models.AITool
	if raw := strings.ToLower(strings.TrimSpace(c.Query("tool"))); raw != "" {
		t := models.AITool(raw)
		switch t {
		case models.AIToolContent, models.AIToolPricing, models.AIToolMarketing, models.AIToolImage, models.AIToolVoice:
		default:
			badRequest(c, "INVALID_QUERY", "unknown tool")
			return
		}
		tool = &t
	}
	page, limit := h.pager.parse(c)

	items, total, err := h.ai.History(c.Request.Context(), userID, tool, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, items, page, limit, total)
}

// MCP mounts an MCP transport behind the auth middleware, handing the caller
// to the tools through the request context.
func MCP(transport http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := caller(c)
		if !ok {
			return
		}
		ctx := mcptools.WithUser(c.Request.Context(), userID)
		transport.ServeHTTP(c.Writer, c.Request.WithContext(ctx))
	}
}
