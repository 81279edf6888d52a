package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"artisan-marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Cache TTL constants
const (
	ProductCacheTTL  = 10 * time.Minute
	CategoryCacheTTL = 30 * time.Minute

	cacheKeyPrefix   = "marketplace:"
	categoryCacheKey = cacheKeyPrefix + "products:categories"
)

// ProductRepository defines the interface for catalog data operations
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	List(ctx context.Context, filters models.ProductFilters) ([]models.Product, int64, error)
	Update(ctx context.Context, id uuid.UUID, changes map[string]interface{}) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	Categories(ctx context.Context) ([]models.CategoryCount, error)
	Invalidate(ctx context.Context, ids ...uuid.UUID)
	RedisHealth(ctx context.Context) error
}

type productRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewProductRepository creates a product repository with optional Redis caching
func NewProductRepository(db *gorm.DB, redisClient *redis.Client) ProductRepository {
	return &productRepository{db: db, redis: redisClient}
}

// publicArtisan limits the preloaded artisan to the public profile columns
func publicArtisan(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "shop_name", "city", "craft", "avatar_url")
}

func productCacheKey(id uuid.UUID) string {
	return cacheKeyPrefix + "product:" + id.String()
}

// Invalidate drops cached products and the category counts
func (r *productRepository) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	if r.redis == nil {
		return
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, productCacheKey(id))
	}
	keys = append(keys, categoryCacheKey)
	_ = r.redis.Del(ctx, keys...).Err()
}

// RedisHealth returns the health status of Redis connection
func (r *productRepository) RedisHealth(ctx context.Context) error {
	if r.redis == nil {
		return fmt.Errorf("redis not configured")
	}
	return r.redis.Ping(ctx).Err()
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	r.Invalidate(ctx)
	return nil
}

// GetByID retrieves a product by ID with caching
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	cacheKey := productCacheKey(id)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	err := r.db.WithContext(ctx).Preload("Artisan", publicArtisan).First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}

	return &product, nil
}

// GetByIDs retrieves multiple products in a single query, bypassing the cache
func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Preload("Artisan", publicArtisan).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to batch get products: %w", err)
	}
	return products, nil
}

func (r *productRepository) List(ctx context.Context, filters models.ProductFilters) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if len(filters.Status) > 0 {
		query = query.Where("status IN ?", filters.Status)
	}
	if filters.ArtisanID != nil {
		query = query.Where("artisan_id = ?", *filters.ArtisanID)
	}
	if filters.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(filters.Category))
	}
	if filters.MinPrice != nil {
		query = query.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		query = query.Where("price <= ?", *filters.MaxPrice)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR ? = ANY(tags))",
			like, like, strings.ToLower(q))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query = paginate(query, filters.Page, filters.Limit)
	if err := query.Preload("Artisan", publicArtisan).Order(productOrder(filters.SortBy)).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func productOrder(sortBy string) string {
	switch sortBy {
	case "price_asc":
		return "price ASC"
	case "price_desc":
		return "price DESC"
	case "name":
		return "name ASC"
	case "oldest":
		return "created_at ASC"
	default:
		return "created_at DESC"
	}
}

// Update writes only the given columns. Stock is decremented by orders in
// place, so a full-row save here would overwrite a concurrent reservation.
func (r *productRepository) Update(ctx context.Context, id uuid.UUID, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}
	changes["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		return fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.Invalidate(ctx, id)
	return nil
}

func (r *productRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to update product status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.Invalidate(ctx, id)
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.Invalidate(ctx, id)
	return nil
}

// Categories returns active product counts per category, cached
func (r *productRepository) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	if r.redis != nil {
		if val, err := r.redis.Get(ctx, categoryCacheKey).Result(); err == nil {
			var cached []models.CategoryCount
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached, nil
			}
		}
	}

	var counts []models.CategoryCount
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("category, COUNT(*) AS count").
		Where("status = ?", models.ProductStatusActive).
		Group("category").
		Order("count DESC, category ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(counts); err == nil {
			r.redis.Set(ctx, categoryCacheKey, data, CategoryCacheTTL)
		}
	}
	return counts, nil
}
