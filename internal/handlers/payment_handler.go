package handlers

import (
	"io"
	"net/http"

	"artisan-marketplace/internal/models"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody caps the webhook payload read into memory
const maxWebhookBody = 1 << 20

// PaymentHandler handles Razorpay checkout, verification, webhooks and refunds
type PaymentHandler struct {
	payments PaymentsAPI
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentsAPI) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Checkout creates a Razorpay order for an unpaid order
// @Summary Start checkout
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.CreatePaymentRequest true "Order to pay"
// @Success 201 {object} models.CheckoutResponse
// @Router /api/v1/payments/checkout [post]
func (h *PaymentHandler) Checkout(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.payments.CreateCheckout(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, resp, "")
}

// Verify checks the checkout signature returned to the browser
// @Summary Verify payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.VerifyPaymentRequest true "Razorpay handler response"
// @Success 200 {object} models.Payment
// @Router /api/v1/payments/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	userID, _, ok := caller(c)
	if !ok {
		return
	}
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "VALIDATION_ERROR", err.Error())
		return
	}

	payment, err := h.payments.Verify(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, payment)
}

// Webhook receives Razorpay events
// @Summary Razorpay webhook
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Razorpay-Signature header string true "HMAC of the raw body"
// @Success 200 {object} models.SuccessResponse
// @Router /api/v1/payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	signature := c.GetHeader("X-Razorpay-Signature")
	if signature == "" {
		badRequest(c, "MISSING_SIGNATURE", "X-Razorpay-Signature header is required")
		return
	}

	// the signature covers the exact bytes, so the body is read raw
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "INVALID_BODY", "Failed to read request body")
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), body, signature); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Webhook processed"})
}

// Refund refunds an order's captured payment in full
// @Summary Refund order
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body models.RefundPaymentRequest false "Reason"
// @Success 200 {object} models.Payment
// @Router /api/v1/admin/orders/{id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.RefundPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "VALIDATION_ERROR", err.Error())
			return
		}
	}

	payment, err := h.payments.Refund(c.Request.Context(), orderID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, payment)
}

// ListForOrder lists payment attempts for an order
// @Summary Order payments
// @Tags Payments
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {array} models.Payment
// @Router /api/v1/orders/{id}/payments [get]
func (h *PaymentHandler) ListForOrder(c *gin.Context) {
	userID, role, ok := caller(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	payments, err := h.payments.ForOrder(c.Request.Context(), userID, role, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, payments)
}
