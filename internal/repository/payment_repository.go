package repository

import (
	"context"
	"errors"
	"fmt"

	"artisan-marketplace/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository defines the interface for gateway payment records
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error)
	GetByRazorpayPaymentID(ctx context.Context, razorpayPaymentID string) (*models.Payment, error)
	GetLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	// SaveWithOrder writes the payment and, when given, the order columns and
	// timeline entry in one transaction
	SaveWithOrder(ctx context.Context, payment *models.Payment, orderUpdates map[string]interface{}, entry *models.OrderTimeline) error
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where(query, args...).Order("created_at DESC").First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *paymentRepository) GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error) {
	return r.first(ctx, "razorpay_order_id = ?", razorpayOrderID)
}

func (r *paymentRepository) GetByRazorpayPaymentID(ctx context.Context, razorpayPaymentID string) (*models.Payment, error) {
	return r.first(ctx, "razorpay_payment_id = ?", razorpayPaymentID)
}

func (r *paymentRepository) GetLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return r.first(ctx, "order_id = ?", orderID)
}

func (r *paymentRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) SaveWithOrder(ctx context.Context, payment *models.Payment, orderUpdates map[string]interface{}, entry *models.OrderTimeline) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(payment).Error; err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		if len(orderUpdates) > 0 {
			err := tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).Updates(orderUpdates).Error
			if err != nil {
				return fmt.Errorf("failed to update order payment: %w", err)
			}
		}
		if entry != nil {
			entry.OrderID = payment.OrderID
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to create timeline event: %w", err)
			}
		}
		return nil
	})
}
