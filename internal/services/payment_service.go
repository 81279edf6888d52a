package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"artisan-marketplace/internal/events"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/razorpay"
	"artisan-marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PaymentService drives Razorpay checkout, verification, webhooks and refunds
type PaymentService struct {
	payments  repository.PaymentRepository
	orders    repository.OrderRepository
	users     repository.UserRepository
	gateway   razorpay.Gateway
	publisher EventPublisher
	now       func() time.Time
	log       *logrus.Entry
}

// NewPaymentService creates a new PaymentService. A nil gateway disables
// checkout but keeps payment history readable.
func NewPaymentService(payments repository.PaymentRepository, orders repository.OrderRepository, users repository.UserRepository, gateway razorpay.Gateway, publisher EventPublisher, log *logrus.Logger) *PaymentService {
	return &PaymentService{
		payments:  payments,
		orders:    orders,
		users:     users,
		gateway:   gateway,
		publisher: publisherOrNoop(publisher),
		now:       time.Now,
		log:       log.WithField("component", "payment_service"),
	}
}

// PaymentEvent is published on every payment outcome
type PaymentEvent struct {
	PaymentID         uuid.UUID                  `json:"paymentId"`
	OrderID           uuid.UUID                  `json:"orderId"`
	CustomerID        uuid.UUID                  `json:"customerId"`
	RazorpayOrderID   string                     `json:"razorpayOrderId"`
	RazorpayPaymentID string                     `json:"razorpayPaymentId,omitempty"`
	Amount            float64                    `json:"amount"`
	Currency          string                     `json:"currency"`
	Status            models.PaymentRecordStatus `json:"status"`
	Reason            string                     `json:"reason,omitempty"`
}

func paymentEvent(p *models.Payment) PaymentEvent {
	return PaymentEvent{
		PaymentID:         p.ID,
		OrderID:           p.OrderID,
		CustomerID:        p.CustomerID,
		RazorpayOrderID:   p.RazorpayOrderID,
		RazorpayPaymentID: p.RazorpayPaymentID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            p.Status,
		Reason:            p.FailureReason,
	}
}

func (s *PaymentService) loadOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// CreateCheckout opens a Razorpay order for an unpaid order owned by the
// customer. An open attempt for the same amount is reused.
func (s *PaymentService) CreateCheckout(ctx context.Context, customerID uuid.UUID, req models.CreatePaymentRequest) (*models.CheckoutResponse, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, validationError("invalid order id")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, ErrForbidden
	}
	switch {
	case order.PaymentStatus == models.PaymentStatusPaid || order.PaymentStatus == models.PaymentStatusRefunded:
		return nil, ErrAlreadyPaid
	case order.Status == models.OrderStatusCancelled:
		return nil, fmt.Errorf("%w: order is cancelled", ErrInvalidTransition)
	}

	payment, err := s.openPayment(ctx, order)
	if err != nil {
		return nil, err
	}

	resp := &models.CheckoutResponse{
		PaymentID:       payment.ID,
		RazorpayOrderID: payment.RazorpayOrderID,
		KeyID:           s.gateway.KeyID(),
		Amount:          razorpay.ToPaise(payment.Amount),
		Currency:        payment.Currency,
		Receipt:         order.OrderNumber,
		CustomerName:    order.ShippingName,
		CustomerPhone:   order.ShippingPhone,
	}
	if customer, err := s.users.GetByID(ctx, customerID); err == nil {
		resp.CustomerEmail = customer.Email
	}
	return resp, nil
}

func (s *PaymentService) openPayment(ctx context.Context, order *models.Order) (*models.Payment, error) {
	latest, err := s.payments.GetLatestByOrderID(ctx, order.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if latest != nil && latest.Status == models.PaymentRecordCreated && latest.Amount == order.Total {
		return latest, nil
	}

	rzpOrder, err := s.gateway.CreateOrder(ctx, razorpay.ToPaise(order.Total), order.Currency, order.OrderNumber, map[string]string{
		"order_id":    order.ID.String(),
		"customer_id": order.CustomerID.String(),
	})
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		RazorpayOrderID: rzpOrder.ID,
		Amount:          order.Total,
		Currency:        order.Currency,
		Status:          models.PaymentRecordCreated,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	// A failed attempt is being retried
	if order.PaymentStatus == models.PaymentStatusFailed {
		updates := map[string]interface{}{"payment_status": models.PaymentStatusPending}
		if err := s.payments.SaveWithOrder(ctx, payment, updates, nil); err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{"order_id": order.ID, "razorpay_order_id": rzpOrder.ID}).Info("Checkout created")
	return payment, nil
}

// Verify checks the checkout callback signature. A mismatch marks the attempt
// failed and returns ErrInvalidSignature.
func (s *PaymentService) Verify(ctx context.Context, customerID uuid.UUID, req models.VerifyPaymentRequest) (*models.Payment, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	payment, err := s.payments.GetByRazorpayOrderID(ctx, req.RazorpayOrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if payment.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if payment.Status == models.PaymentRecordCaptured && payment.RazorpayPaymentID == req.RazorpayPaymentID {
		return payment, nil
	}
	if payment.Status != models.PaymentRecordCreated && payment.Status != models.PaymentRecordFailed {
		return nil, ErrAlreadyPaid
	}

	if !s.gateway.VerifyPaymentSignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		payment.RazorpayPaymentID = req.RazorpayPaymentID
		if err := s.markFailed(ctx, payment, "signature mismatch"); err != nil {
			return nil, err
		}
		return nil, ErrInvalidSignature
	}

	method := ""
	if details, err := s.gateway.FetchPayment(ctx, req.RazorpayPaymentID); err != nil {
		s.log.WithError(err).WithField("razorpay_payment_id", req.RazorpayPaymentID).Warn("Failed to fetch payment details")
	} else {
		method = details.Method
	}

	payment.Signature = req.RazorpaySignature
	if err := s.capture(ctx, payment, req.RazorpayPaymentID, method); err != nil {
		return nil, err
	}
	return payment, nil
}

// capture records a successful payment and confirms the order if it is still
// waiting for one
func (s *PaymentService) capture(ctx context.Context, payment *models.Payment, razorpayPaymentID, method string) error {
	order, err := s.loadOrder(ctx, payment.OrderID)
	if err != nil {
		return err
	}

	now := s.now()
	payment.Status = models.PaymentRecordCaptured
	payment.RazorpayPaymentID = razorpayPaymentID
	payment.FailureReason = ""
	payment.CapturedAt = &now
	if method != "" {
		payment.Method = method
	}

	var updates map[string]interface{}
	var entry *models.OrderTimeline
	if models.CanTransitionPaymentStatus(order.PaymentStatus, models.PaymentStatusPaid) {
		updates = map[string]interface{}{"payment_status": models.PaymentStatusPaid, "updated_at": now}
		if order.Status == models.OrderStatusPlaced {
			updates["status"] = models.OrderStatusConfirmed
			entry = &models.OrderTimeline{
				Status:    models.OrderStatusConfirmed,
				Note:      "Payment received",
				CreatedBy: "system:razorpay",
			}
		}
	}

	if err := s.payments.SaveWithOrder(ctx, payment, updates, entry); err != nil {
		return err
	}
	s.publish(ctx, events.SubjectPaymentCaptured, paymentEvent(payment))
	s.log.WithFields(logrus.Fields{"order_id": payment.OrderID, "payment_id": payment.ID}).Info("Payment captured")
	return nil
}

func (s *PaymentService) markFailed(ctx context.Context, payment *models.Payment, reason string) error {
	order, err := s.loadOrder(ctx, payment.OrderID)
	if err != nil {
		return err
	}

	payment.Status = models.PaymentRecordFailed
	payment.FailureReason = reason

	var updates map[string]interface{}
	if models.CanTransitionPaymentStatus(order.PaymentStatus, models.PaymentStatusFailed) {
		updates = map[string]interface{}{"payment_status": models.PaymentStatusFailed, "updated_at": s.now()}
	}
	if err := s.payments.SaveWithOrder(ctx, payment, updates, nil); err != nil {
		return err
	}
	s.publish(ctx, events.SubjectPaymentFailed, paymentEvent(payment))
	s.log.WithFields(logrus.Fields{"order_id": payment.OrderID, "reason": reason}).Warn("Payment failed")
	return nil
}

func (s *PaymentService) markRefunded(ctx context.Context, payment *models.Payment, refundID, reason string) error {
	order, err := s.loadOrder(ctx, payment.OrderID)
	if err != nil {
		return err
	}

	now := s.now()
	payment.Status = models.PaymentRecordRefunded
	payment.RefundID = refundID
	payment.RefundedAt = &now

	var updates map[string]interface{}
	var entry *models.OrderTimeline
	if models.CanTransitionPaymentStatus(order.PaymentStatus, models.PaymentStatusRefunded) {
		updates = map[string]interface{}{"payment_status": models.PaymentStatusRefunded, "updated_at": now}
		note := "Payment refunded"
		if reason != "" {
			note = fmt.Sprintf("Payment refunded: %s", reason)
		}
		entry = &models.OrderTimeline{Status: order.Status, Note: note, CreatedBy: "system:razorpay"}
	}
	if err := s.payments.SaveWithOrder(ctx, payment, updates, entry); err != nil {
		return err
	}
	s.publish(ctx, events.SubjectPaymentRefunded, paymentEvent(payment))
	s.log.WithFields(logrus.Fields{"order_id": payment.OrderID, "refund_id": refundID}).Info("Payment refunded")
	return nil
}

// HandleWebhook applies a signed Razorpay notification. Unknown events and
// payments this service never created are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return ErrPaymentsDisabled
	}
	if err := s.gateway.VerifyWebhook(payload, signature); err != nil {
		return ErrInvalidSignature
	}
	event, err := s.gateway.ParseWebhook(payload)
	if err != nil {
		return validationError("malformed webhook payload")
	}

	log := s.log.WithFields(logrus.Fields{"event": event.Event, "razorpay_order_id": event.OrderID, "razorpay_payment_id": event.PaymentID})

	switch event.Event {
	case razorpay.EventPaymentCaptured:
		payment, err := s.paymentForEvent(ctx, event)
		if err != nil || payment == nil {
			return err
		}
		if payment.Status == models.PaymentRecordCaptured || payment.Status == models.PaymentRecordRefunded {
			return nil
		}
		return s.capture(ctx, payment, event.PaymentID, event.Method)

	case razorpay.EventPaymentFailed:
		payment, err := s.paymentForEvent(ctx, event)
		if err != nil || payment == nil {
			return err
		}
		if payment.Status != models.PaymentRecordCreated {
			return nil
		}
		payment.RazorpayPaymentID = event.PaymentID
		return s.markFailed(ctx, payment, event.FailureMessage)

	case razorpay.EventRefundProcessed:
		payment, err := s.paymentForEvent(ctx, event)
		if err != nil || payment == nil {
			return err
		}
		if payment.Status == models.PaymentRecordRefunded {
			return nil
		}
		return s.markRefunded(ctx, payment, event.RefundID, "")

	default:
		log.Debug("Ignoring webhook event")
		return nil
	}
}

// paymentForEvent finds the local attempt, preferring the gateway order id.
// It returns nil, nil when the payment is unknown.
func (s *PaymentService) paymentForEvent(ctx context.Context, event *razorpay.WebhookEvent) (*models.Payment, error) {
	var payment *models.Payment
	var err error
	switch {
	case event.OrderID != "":
		payment, err = s.payments.GetByRazorpayOrderID(ctx, event.OrderID)
	case event.PaymentID != "":
		payment, err = s.payments.GetByRazorpayPaymentID(ctx, event.PaymentID)
	default:
		return nil, nil
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.WithField("event", event.Event).Warn("Webhook for unknown payment")
			return nil, nil
		}
		return nil, err
	}
	return payment, nil
}

// Refund returns the full captured amount of an order's payment
func (s *PaymentService) Refund(ctx context.Context, orderID uuid.UUID, req models.RefundPaymentRequest) (*models.Payment, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	payment, err := s.payments.GetLatestByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotRefundable
		}
		return nil, err
	}
	if payment.Status != models.PaymentRecordCaptured || payment.RazorpayPaymentID == "" {
		return nil, ErrNotRefundable
	}

	reason := strings.TrimSpace(req.Reason)
	refund, err := s.gateway.Refund(ctx, payment.RazorpayPaymentID, razorpay.ToPaise(payment.Amount), reason)
	if err != nil {
		return nil, err
	}
	if err := s.markRefunded(ctx, payment, refund.ID, reason); err != nil {
		return nil, err
	}
	return payment, nil
}

// ForOrder returns every attempt for an order the viewer may see, newest first
func (s *PaymentService) ForOrder(ctx context.Context, viewerID uuid.UUID, role models.Role, orderID uuid.UUID) ([]models.Payment, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && order.CustomerID != viewerID {
		return nil, ErrForbidden
	}
	return s.payments.ListByOrderID(ctx, orderID)
}

func (s *PaymentService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.publisher.Publish(ctx, subject, data); err != nil {
		s.log.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}
