package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentRecordStatus tracks a single Razorpay attempt
type PaymentRecordStatus string

const (
	PaymentRecordCreated  PaymentRecordStatus = "CREATED"
	PaymentRecordCaptured PaymentRecordStatus = "CAPTURED"
	PaymentRecordFailed   PaymentRecordStatus = "FAILED"
	PaymentRecordRefunded PaymentRecordStatus = "REFUNDED"
)

// Payment is one gateway attempt for an order
type Payment struct {
	ID                uuid.UUID           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID           uuid.UUID           `json:"orderId" gorm:"type:uuid;not null;index:idx_payments_order"`
	CustomerID        uuid.UUID           `json:"customerId" gorm:"type:uuid;not null;index"`
	RazorpayOrderID   string              `json:"razorpayOrderId" gorm:"type:varchar(64);uniqueIndex:idx_payments_rzp_order"`
	RazorpayPaymentID string              `json:"razorpayPaymentId,omitempty" gorm:"type:varchar(64);index"`
	Signature         string              `json:"-" gorm:"type:varchar(255)"`
	Amount            float64             `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency          string              `json:"currency" gorm:"type:varchar(3);not null"`
	Status            PaymentRecordStatus `json:"status" gorm:"type:varchar(20);not null;default:'CREATED'"`
	Method            string              `json:"method,omitempty" gorm:"type:varchar(32)"`
	RefundID          string              `json:"refundId,omitempty" gorm:"type:varchar(64)"`
	FailureReason     string              `json:"failureReason,omitempty" gorm:"type:text"`
	CapturedAt        *time.Time          `json:"capturedAt,omitempty"`
	RefundedAt        *time.Time          `json:"refundedAt,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// TableName returns the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// CreatePaymentRequest starts checkout for an order
type CreatePaymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// CheckoutResponse carries what the Razorpay checkout widget needs
type CheckoutResponse struct {
	PaymentID       uuid.UUID `json:"paymentId"`
	RazorpayOrderID string    `json:"razorpayOrderId"`
	KeyID           string    `json:"keyId"`
	Amount          int64     `json:"amount"` // paise
	Currency        string    `json:"currency"`
	Receipt         string    `json:"receipt"`
	CustomerName    string    `json:"customerName,omitempty"`
	CustomerEmail   string    `json:"customerEmail,omitempty"`
	CustomerPhone   string    `json:"customerPhone,omitempty"`
}

// VerifyPaymentRequest is posted by the client after checkout completes
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId" binding:"required"`
	RazorpayPaymentID string `json:"razorpayPaymentId" binding:"required"`
	RazorpaySignature string `json:"razorpaySignature" binding:"required"`
}

// RefundPaymentRequest issues a refund on a captured payment
type RefundPaymentRequest struct {
	Reason string `json:"reason,omitempty"`
}
