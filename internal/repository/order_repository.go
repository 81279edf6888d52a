package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"artisan-marketplace/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository defines the interface for order data operations
type OrderRepository interface {
	CreateWithStock(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	List(ctx context.Context, filters models.OrderFilters) ([]models.Order, int64, error)
	ApplyStatusChange(ctx context.Context, order *models.Order, from models.OrderStatus, entry *models.OrderTimeline) error
	Cancel(ctx context.Context, order *models.Order, from models.OrderStatus, entry *models.OrderTimeline) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// CreateWithStock reserves stock for every line and inserts the order with its
// items and first timeline entry in one transaction.
func (r *orderRepository) CreateWithStock(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			result := tx.Model(&models.Product{}).
				Where("id = ? AND status = ? AND stock >= ?", item.ProductID, models.ProductStatusActive, item.Quantity).
				Updates(map[string]interface{}{
					"stock":      gorm.Expr("stock - ?", item.Quantity),
					"updated_at": time.Now(),
				})
			if result.Error != nil {
				return fmt.Errorf("failed to reserve stock: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w for product %s", ErrInsufficientStock, item.ProductID)
			}
		}

		if err := tx.Create(order).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
}

func (r *orderRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items").
		Preload("Timeline", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_timeline.created_at ASC")
		})
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.preloaded(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := r.preloaded(ctx).First(&order, "order_number = ?", orderNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// List retrieves orders with filtering and pagination
func (r *orderRepository) List(ctx context.Context, filters models.OrderFilters) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.ArtisanID != nil {
		query = query.Where("id IN (?)",
			r.db.Model(&models.OrderItem{}).Select("order_id").Where("artisan_id = ?", *filters.ArtisanID))
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query = paginate(query, filters.Page, filters.Limit)
	if err := query.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func statusChangeUpdates(order *models.Order) map[string]interface{} {
	return map[string]interface{}{
		"status":             order.Status,
		"current_city":       order.CurrentCity,
		"current_lat":        order.CurrentLat,
		"current_lng":        order.CurrentLng,
		"tracking_number":    order.TrackingNumber,
		"carrier":            order.Carrier,
		"estimated_delivery": order.EstimatedDelivery,
		"updated_at":         time.Now(),
	}
}

// ApplyStatusChange persists the new status and tracking fields only if the
// stored status still equals from, then appends entry to the timeline.
func (r *orderRepository) ApplyStatusChange(ctx context.Context, order *models.Order, from models.OrderStatus, entry *models.OrderTimeline) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, from).
			Updates(statusChangeUpdates(order))
		if result.Error != nil {
			return fmt.Errorf("failed to update order status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrStaleState
		}

		entry.OrderID = order.ID
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to create timeline event: %w", err)
		}
		return nil
	})
}

// Cancel marks the order cancelled and returns its stock to the catalog
func (r *orderRepository) Cancel(ctx context.Context, order *models.Order, from models.OrderStatus, entry *models.OrderTimeline) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, from).
			Updates(statusChangeUpdates(order))
		if result.Error != nil {
			return fmt.Errorf("failed to cancel order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrStaleState
		}

		for _, item := range order.Items {
			err := tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error
			if err != nil {
				return fmt.Errorf("failed to restore stock: %w", err)
			}
		}

		entry.OrderID = order.ID
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to create timeline event: %w", err)
		}
		return nil
	})
}
