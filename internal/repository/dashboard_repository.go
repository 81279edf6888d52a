package repository

import (
	"context"
	"fmt"

	"artisan-marketplace/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DashboardRepository aggregates the admin overview
type DashboardRepository interface {
	Stats(ctx context.Context, adminID uuid.UUID) (*models.DashboardStats, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository creates a new dashboard repository
func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

type groupCount struct {
	GroupKey string
	Count    int64
}

func (r *dashboardRepository) groupBy(ctx context.Context, model interface{}, column string) ([]groupCount, error) {
	var rows []groupCount
	err := r.db.WithContext(ctx).Model(model).
		Select(column + " AS group_key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	return rows, err
}

func (r *dashboardRepository) Stats(ctx context.Context, adminID uuid.UUID) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		UsersByRole:      map[models.Role]int64{},
		ProductsByStatus: map[models.ProductStatus]int64{},
		OrdersByStatus:   map[models.OrderStatus]int64{},
	}

	users, err := r.groupBy(ctx, &models.User{}, "role")
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	for _, row := range users {
		stats.UsersByRole[models.Role(row.GroupKey)] = row.Count
	}

	products, err := r.groupBy(ctx, &models.Product{}, "status")
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	for _, row := range products {
		stats.ProductsByStatus[models.ProductStatus(row.GroupKey)] = row.Count
	}

	orders, err := r.groupBy(ctx, &models.Order{}, "status")
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	for _, row := range orders {
		stats.OrdersByStatus[models.OrderStatus(row.GroupKey)] = row.Count
	}

	err = r.db.WithContext(ctx).Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0)").
		Where("payment_status = ?", models.PaymentStatusPaid).
		Scan(&stats.Revenue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	err = r.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND is_verified = ?", models.RoleArtisan, false).
		Count(&stats.PendingArtisans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count pending artisans: %w", err)
	}

	err = r.db.WithContext(ctx).Model(&models.AdminMessage{}).
		Where("receiver_id = ? AND is_read = ?", adminID, false).
		Count(&stats.UnreadMessages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}

	return stats, nil
}
