package handlers

import (
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the admin overview
type DashboardHandler struct {
	dashboard DashboardAPI
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboard DashboardAPI) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats returns marketplace counters
// @Summary Admin dashboard
// @Tags Admin
// @Produce json
// @Success 200 {object} models.DashboardStats
// @Router /api/v1/admin/dashboard [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	stats, err := h.dashboard.Stats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}
