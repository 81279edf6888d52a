package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"artisan-marketplace/internal/middleware"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// errorMapping pairs a service sentinel with its HTTP status and error code
type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{services.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{services.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{services.ErrArtisanNotVerified, http.StatusForbidden, "ARTISAN_NOT_VERIFIED"},
	{services.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{services.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{services.ErrProductUnavailable, http.StatusConflict, "PRODUCT_UNAVAILABLE"},
	{services.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
	{services.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{services.ErrConflict, http.StatusConflict, "CONFLICT"},
	{services.ErrAlreadyPaid, http.StatusConflict, "ALREADY_PAID"},
	{services.ErrNotRefundable, http.StatusConflict, "NOT_REFUNDABLE"},
	{services.ErrInvalidSignature, http.StatusBadRequest, "INVALID_SIGNATURE"},
	{services.ErrPaymentsDisabled, http.StatusServiceUnavailable, "PAYMENTS_DISABLED"},
	{services.ErrAIUnavailable, http.StatusServiceUnavailable, "AI_UNAVAILABLE"},
	{services.ErrMediaUnavailable, http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE"},
	{services.ErrAIResponse, http.StatusBadGateway, "AI_BAD_RESPONSE"},
}

// respondError writes the error envelope for err. Unknown errors are attached
// to the context for the request logger and reported generically.
func respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, models.NewErrorResponse(m.code, err.Error()))
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, models.NewErrorResponse("INTERNAL_ERROR", "An internal error occurred"))
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, models.NewErrorResponse(code, message))
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: data, Message: message})
}

func respondPage(c *gin.Context, data interface{}, page, limit int, total int64) {
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success:    true,
		Data:       data,
		Pagination: models.NewPaginationInfo(page, limit, total),
	})
}

// Pager reads page and limit query parameters
type Pager struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultPager is used when a handler is built without one
var DefaultPager = Pager{DefaultLimit: 20, MaxLimit: 100}

func (p Pager) parse(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(p.DefaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = p.DefaultLimit
	}
	if limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	return page, limit
}

func pagerOrDefault(p Pager) Pager {
	if p.DefaultLimit <= 0 || p.MaxLimit <= 0 {
		return DefaultPager
	}
	return p
}

// caller returns the authenticated user. It aborts with 401 when the auth
// middleware did not run or the subject is malformed.
func caller(c *gin.Context) (uuid.UUID, models.Role, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewErrorResponse("UNAUTHORIZED", "Authentication required"))
		return uuid.Nil, "", false
	}
	return id, middleware.GetUserRole(c), true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "INVALID_ID", fmt.Sprintf("Invalid %s format", name))
		return uuid.Nil, false
	}
	return id, true
}

func optionalFloat(c *gin.Context, key string) (*float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		badRequest(c, "INVALID_QUERY", fmt.Sprintf("%s must be a number", key))
		return nil, false
	}
	return &v, true
}

// readUpload reads the multipart field into memory, capped at maxBytes+1 so
// the service can reject oversize files with a proper message.
func readUpload(c *gin.Context, field string, maxBytes int64) ([]byte, string, string, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		badRequest(c, "MISSING_FILE", fmt.Sprintf("multipart field %q is required", field))
		return nil, "", "", false
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "INVALID_FILE", "Could not read uploaded file")
		return nil, "", "", false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		badRequest(c, "INVALID_FILE", "Could not read uploaded file")
		return nil, "", "", false
	}
	return data, fh.Filename, fh.Header.Get("Content-Type"), true
}

func sendAttachment(c *gin.Context, contentType, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}
