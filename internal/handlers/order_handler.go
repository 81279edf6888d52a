package handlers

import (
	"fmt"
	"strings"
	"time"

	"artisan-marketplace/internal/models"

	"github.com/gin-gonic/gin"
)

// OrderHandler handles orders, tracking and invoices
type OrderHandler struct {
	orders   OrdersAPI
	invoices InvoiceAPI
	exporter ExportAPI
	pager    Pager
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrdersAPI, invoices InvoiceAPI, exporter ExportAPI, pager Pager) *OrderHandler {
	return &OrderHandler{orders: orders, invoices: invoices, exporter: exporter, pager: pagerOrDefault(pager)}
}

// CancelOrderRequest is the optional body of a cancellation
type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

const dateLayout = "2006-01-02"

func (h *OrderHandler) filters(c *gin.Context) (models.OrderFilters, bool) {
	page, limit := h.pager.parse(c)
	f := models.OrderFilters{Page: page, Limit: limit}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.OrderStatus(strings.ToUpper(raw))
		if !models.IsValidOrderStatus(status) {
			badRequest(c, "INVALID_QUERY", fmt.Sprintf("unknown order status %q", raw))
			return f, false
		}
		f.Status = &status
	}
	for key, dst := range map[string]**time.Time{"from": &f.DateFrom, "to": &f.DateTo} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			badRequest(c, "INVALID_QUERY", fmt.Sprintf("%s must be a date like 2024-05-10", key))
			return f, false
		}
		if key == "to" {
			// inclusive of the whole day
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		*dst = &t
	}
	return f, true
}

// PlaceOrder checks out the customer's items
// @Summary Place order
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body models.CreateOrderRequest true "Items and shipping address"
// @Success 201 {object} models.Order
// @Router /api/v1/orders [post]
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, order, "Order placed")
}

// ListOrders lists orders visible to the caller
// @Summary List orders
// @Tags Orders
// @Produce json
// @Param status query string false "Order status"
// @Param from query string false "Placed on or after, YYYY-MM-DD"
// @Param to query string false "Placed on or before, YYYY-MM-DD"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {array} models.Order
// @Router /api/v1/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	f, ok := h.filters(c)
	if !ok {
		return
	}
	orders, total, err := h.orders.ListOrders(c.Request.Context(), userID, role, f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, orders, f.Page, f.Limit, total)
}

// GetOrder returns one order
// @Summary Get order
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.Order
// @Router /api/v1/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), userID, role, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

// UpdateStatus advances fulfilment
// @Summary Update order status
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body models.UpdateOrderStatusRequest true "New status and optional location"
// @Success 200 {object} models.Order
// @Router /api/v1/orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), userID, role, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

// CancelOrder cancels an order that has not shipped
// @Summary Cancel order
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body CancelOrderRequest false "Reason"
// @Success 200 {object} models.Order
// @Router /api/v1/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "VALIDATION_ERROR", err.Error())
			return
		}
	}

	order, err := h.orders.Cancel(c.Request.Context(), userID, role, id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

// Tracking returns the parcel's route with coordinates
// @Summary Track order
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} models.TrackingInfo
// @Router /api/v1/orders/{id}/tracking [get]
func (h *OrderHandler) Tracking(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	info, err := h.orders.Tracking(c.Request.Context(), userID, role, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, info)
}

// Invoice downloads the order invoice as a PDF
// @Summary Download invoice
// @Tags Orders
// @Produce application/pdf
// @Param id path string true "Order ID"
// @Success 200 {file} file
// @Router /api/v1/orders/{id}/invoice [get]
func (h *OrderHandler) Invoice(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	data, filename, err := h.invoices.Generate(c.Request.Context(), userID, role, id)
	if err != nil {
		respondError(c, err)
		return
	}
	sendAttachment(c, "application/pdf", filename, data)
}

// ExportOrders downloads orders as a spreadsheet
// @Summary Export orders
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /api/v1/admin/orders/export [get]
func (h *OrderHandler) ExportOrders(c *gin.Context) {
	f, ok := h.filters(c)
	if !ok {
		return
	}
	data, filename, err := h.exporter.Orders(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	sendAttachment(c, xlsxContentType, filename, data)
}
