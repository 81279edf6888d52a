// Package razorpay wraps the Razorpay SDK and its signature schemes.
package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	razorpayLib "github.com/razorpay/razorpay-go"
)

var (
	// ErrNotConfigured is returned when key id or secret is missing
	ErrNotConfigured = errors.New("razorpay is not configured")
	// ErrInvalidSignature is returned when a checkout or webhook signature does not match
	ErrInvalidSignature = errors.New("signature verification failed")
)

// Webhook event types handled by the marketplace
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
)

// Order is the gateway order created for checkout
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// PaymentDetails is the subset of a fetched payment the marketplace stores
type PaymentDetails struct {
	ID             string
	OrderID        string
	Status         string
	Method         string
	Amount         int64
	Currency       string
	FailureMessage string
}

// Refund is a created refund
type Refund struct {
	ID     string
	Status string
	Amount int64
}

// WebhookEvent is a parsed webhook notification
type WebhookEvent struct {
	Event          string
	PaymentID      string
	OrderID        string
	RefundID       string
	Status         string
	Method         string
	Amount         int64
	FailureMessage string
}

// Gateway talks to Razorpay
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (*Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error)
	Refund(ctx context.Context, paymentID string, amountPaise int64, reason string) (*Refund, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhook(payload []byte, signature string) error
	ParseWebhook(payload []byte) (*WebhookEvent, error)
}

// Client implements Gateway with the official SDK
type Client struct {
	client        *razorpayLib.Client
	keyID         string
	keySecret     string
	webhookSecret string
}

// NewClient creates a Razorpay gateway
func NewClient(keyID, keySecret, webhookSecret string) (*Client, error) {
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("%w: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required", ErrNotConfigured)
	}
	return &Client{
		client:        razorpayLib.NewClient(keyID, keySecret),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}, nil
}

// ToPaise converts a rupee amount to the smallest currency unit
func ToPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromPaise converts paise back to rupees
func FromPaise(paise int64) float64 {
	return float64(paise) / 100
}

func (g *Client) KeyID() string {
	return g.keyID
}

// CreateOrder creates a Razorpay order
func (g *Client) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (*Order, error) {
	orderData := map[string]interface{}{
		"amount":   amountPaise,
		"currency": strings.ToUpper(currency),
		"receipt":  receipt,
		"notes":    notes,
	}

	order, err := g.client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create failed: %w", err)
	}

	id, _ := order["id"].(string)
	status, _ := order["status"].(string)
	return &Order{
		ID:       id,
		Amount:   amountPaise,
		Currency: strings.ToUpper(currency),
		Receipt:  receipt,
		Status:   status,
	}, nil
}

// FetchPayment fetches payment details from Razorpay
func (g *Client) FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error) {
	payment, err := g.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay payment fetch failed: %w", err)
	}
	return paymentDetails(payment), nil
}

// Refund creates a refund. A zero amount refunds the full payment.
func (g *Client) Refund(ctx context.Context, paymentID string, amountPaise int64, reason string) (*Refund, error) {
	refundData := map[string]interface{}{}
	if amountPaise > 0 {
		refundData["amount"] = amountPaise
	}
	if reason != "" {
		refundData["notes"] = map[string]string{"reason": reason}
	}

	resp, err := g.client.Payment.Refund(paymentID, int(amountPaise), refundData, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay refund failed: %w", err)
	}

	id, _ := resp["id"].(string)
	status, _ := resp["status"].(string)
	amount, _ := resp["amount"].(float64)
	return &Refund{ID: id, Status: status, Amount: int64(amount)}, nil
}

// VerifyPaymentSignature checks the checkout signature over "order_id|payment_id"
func (g *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifyPaymentSignature(g.keySecret, orderID, paymentID, signature)
}

// VerifyWebhook verifies the X-Razorpay-Signature header over the raw body
func (g *Client) VerifyWebhook(payload []byte, signature string) error {
	if g.webhookSecret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrNotConfigured)
	}
	if !hmac.Equal([]byte(signature), []byte(ComputeHMAC(payload, g.webhookSecret))) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseWebhook extracts the payment or refund entity from a webhook body
func (g *Client) ParseWebhook(payload []byte) (*WebhookEvent, error) {
	return ParseWebhook(payload)
}

// VerifyPaymentSignature is the checkout signature check with an explicit secret
func VerifyPaymentSignature(secret, orderID, paymentID, signature string) bool {
	expected := ComputeHMAC([]byte(orderID+"|"+paymentID), secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// ComputeHMAC returns the hex HMAC-SHA256 of payload
func ComputeHMAC(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// ParseWebhook decodes a webhook body
func ParseWebhook(payload []byte) (*WebhookEvent, error) {
	var body struct {
		Event   string `json:"event"`
		Payload struct {
			Payment *struct {
				Entity map[string]interface{} `json:"entity"`
			} `json:"payment"`
			Refund *struct {
				Entity map[string]interface{} `json:"entity"`
			} `json:"refund"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	event := &WebhookEvent{Event: body.Event}
	if body.Payload.Payment != nil {
		p := paymentDetails(body.Payload.Payment.Entity)
		event.PaymentID = p.ID
		event.OrderID = p.OrderID
		event.Status = p.Status
		event.Method = p.Method
		event.Amount = p.Amount
		event.FailureMessage = p.FailureMessage
	}
	if body.Payload.Refund != nil {
		entity := body.Payload.Refund.Entity
		event.RefundID, _ = entity["id"].(string)
		if event.PaymentID == "" {
			event.PaymentID, _ = entity["payment_id"].(string)
		}
		if event.Status == "" {
			event.Status, _ = entity["status"].(string)
		}
	}
	return event, nil
}

func paymentDetails(payment map[string]interface{}) *PaymentDetails {
	amount, _ := payment["amount"].(float64)
	details := &PaymentDetails{Amount: int64(amount)}
	details.ID, _ = payment["id"].(string)
	details.OrderID, _ = payment["order_id"].(string)
	details.Status, _ = payment["status"].(string)
	details.Method, _ = payment["method"].(string)
	details.Currency, _ = payment["currency"].(string)
	details.Currency = strings.ToUpper(details.Currency)
	details.FailureMessage, _ = payment["error_description"].(string)
	return details
}
