package handlers

import (
	"net/http"
	"strconv"

	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/repository"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles accounts, sessions and the admin user directory
type AuthHandler struct {
	auth  AuthAPI
	pager Pager
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth AuthAPI, pager Pager) *AuthHandler {
	return &AuthHandler{auth: auth, pager: pagerOrDefault(pager)}
}

// ChangePasswordRequest is the body of a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}

// VerifyArtisanRequest toggles an artisan's verified badge
type VerifyArtisanRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// Register creates a customer or artisan account
// @Summary Register
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Account details"
// @Success 201 {object} models.AuthResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, resp, "Account created")
}

// Login exchanges credentials for a token
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} models.AuthResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, resp)
}

// Me returns the signed-in user
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} models.User
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

// UpdateProfile edits the signed-in user's profile
// @Summary Update profile
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} models.User
// @Router /api/v1/auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}

// ChangePassword replaces the signed-in user's password
// @Summary Change password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Current and new password"
// @Success 200 {object} models.SuccessResponse
// @Router /api/v1/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Password updated"})
}

// ListUsers lists accounts for admins
// @Summary List users
// @Tags Admin
// @Produce json
// @Param role query string false "admin, artisan or customer"
// @Param verified query bool false "Only verified or unverified accounts"
// @Param search query string false "Name, email or shop name"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {array} models.User
// @Router /api/v1/admin/users [get]
func (h *AuthHandler) ListUsers(c *gin.Context) {
	page, limit := h.pager.parse(c)
	filters := repository.UserFilters{
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	}
	if raw := c.Query("role"); raw != "" {
		role := models.ParseRole(raw)
		if !role.IsValid() {
			badRequest(c, "INVALID_QUERY", "role must be admin, artisan or customer")
			return
		}
		filters.Role = &role
	}
	if raw := c.Query("verified"); raw != "" {
		verified, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "INVALID_QUERY", "verified must be true or false")
			return
		}
		filters.Verified = &verified
	}

	users, total, err := h.auth.ListUsers(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, users, page, limit, total)
}

// VerifyArtisan sets or clears an artisan's verified flag
// @Summary Verify artisan
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body VerifyArtisanRequest true "Verification flag"
// @Success 200 {object} models.User
// @Router /api/v1/admin/users/{id}/verify [put]
func (h *AuthHandler) VerifyArtisan(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req VerifyArtisanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	user, err := h.auth.SetArtisanVerified(c.Request.Context(), id, *req.Verified)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, user)
}
