package repository

import (
	"context"
	"fmt"

	"artisan-marketplace/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AIGenerationRepository stores the history of generative tool calls
type AIGenerationRepository interface {
	Create(ctx context.Context, gen *models.AIGeneration) error
	ListByUser(ctx context.Context, userID uuid.UUID, tool *models.AITool, page, limit int) ([]models.AIGeneration, int64, error)
}

type aiGenerationRepository struct {
	db *gorm.DB
}

// NewAIGenerationRepository creates a new generation history repository
func NewAIGenerationRepository(db *gorm.DB) AIGenerationRepository {
	return &aiGenerationRepository{db: db}
}

func (r *aiGenerationRepository) Create(ctx context.Context, gen *models.AIGeneration) error {
	if err := r.db.WithContext(ctx).Create(gen).Error; err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}
	return nil
}

func (r *aiGenerationRepository) ListByUser(ctx context.Context, userID uuid.UUID, tool *models.AITool, page, limit int) ([]models.AIGeneration, int64, error) {
	var gens []models.AIGeneration
	var total int64

	query := r.db.WithContext(ctx).Model(&models.AIGeneration{}).Where("user_id = ?", userID)
	if tool != nil {
		query = query.Where("tool = ?", *tool)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count generations: %w", err)
	}
	query = paginate(query, page, limit)
	if err := query.Order("created_at DESC").Find(&gens).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list generations: %w", err)
	}
	return gens, total, nil
}
