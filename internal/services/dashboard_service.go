package services

import (
	"context"

	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/repository"

	"github.com/google/uuid"
)

// DashboardService serves the admin overview
type DashboardService struct {
	repo repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(repo repository.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// Stats returns marketplace counters. Unread messages are the calling admin's.
func (s *DashboardService) Stats(ctx context.Context, adminID uuid.UUID) (*models.DashboardStats, error) {
	stats, err := s.repo.Stats(ctx, adminID)
	if err != nil {
		return nil, err
	}
	// Every known key is present so clients can render zero counts
	for _, r := range []models.Role{models.RoleAdmin, models.RoleArtisan, models.RoleCustomer} {
		if _, ok := stats.UsersByRole[r]; !ok {
			stats.UsersByRole[r] = 0
		}
	}
	for _, st := range []models.ProductStatus{models.ProductStatusDraft, models.ProductStatusActive, models.ProductStatusInactive, models.ProductStatusRejected} {
		if _, ok := stats.ProductsByStatus[st]; !ok {
			stats.ProductsByStatus[st] = 0
		}
	}
	for st := range models.ValidOrderTransitions {
		if _, ok := stats.OrdersByStatus[st]; !ok {
			stats.OrdersByStatus[st] = 0
		}
	}
	return stats, nil
}
