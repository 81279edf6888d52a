package services

import (
	"context"
	"errors"
	"strings"

	"artisan-marketplace/internal/events"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProductService handles catalog business logic
type ProductService struct {
	products        repository.ProductRepository
	users           repository.UserRepository
	publisher       EventPublisher
	defaultCurrency string
	log             *logrus.Entry
}

// NewProductService creates a new ProductService
func NewProductService(products repository.ProductRepository, users repository.UserRepository, publisher EventPublisher, defaultCurrency string, log *logrus.Logger) *ProductService {
	return &ProductService{
		products:        products,
		users:           users,
		publisher:       publisherOrNoop(publisher),
		defaultCurrency: defaultCurrency,
		log:             log.WithField("component", "product_service"),
	}
}

// ListPublic lists the storefront. Only ACTIVE products are ever visible here.
func (s *ProductService) ListPublic(ctx context.Context, filters models.ProductFilters) ([]models.Product, int64, error) {
	filters.Status = []models.ProductStatus{models.ProductStatusActive}
	return s.products.List(ctx, filters)
}

// ListForArtisan lists the caller's own products in any status
func (s *ProductService) ListForArtisan(ctx context.Context, artisanID uuid.UUID, filters models.ProductFilters) ([]models.Product, int64, error) {
	filters.ArtisanID = &artisanID
	return s.products.List(ctx, filters)
}

// ListAll is the admin moderation listing
func (s *ProductService) ListAll(ctx context.Context, filters models.ProductFilters) ([]models.Product, int64, error) {
	return s.products.List(ctx, filters)
}

// Get returns a product. Products that are not ACTIVE are only visible to
// their artisan and to admins.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID, viewerID uuid.UUID, viewerRole models.Role) (*models.Product, error) {
	product, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.Status != models.ProductStatusActive && !canManage(product, viewerID, viewerRole) {
		return nil, ErrNotFound
	}
	return product, nil
}

func (s *ProductService) get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func canManage(product *models.Product, userID uuid.UUID, role models.Role) bool {
	return role == models.RoleAdmin || (role == models.RoleArtisan && product.ArtisanID == userID)
}

// Categories returns active categories with product counts
func (s *ProductService) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	return s.products.Categories(ctx)
}

// Create lists a new product for the artisan. Publishing straight away
// requires a verified artisan account.
func (s *ProductService) Create(ctx context.Context, artisanID uuid.UUID, req models.CreateProductRequest) (*models.Product, error) {
	status := models.ProductStatusDraft
	if req.Publish {
		if err := s.requireVerified(ctx, artisanID); err != nil {
			return nil, err
		}
		status = models.ProductStatusActive
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	product := &models.Product{
		ArtisanID:   artisanID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Price:       req.Price,
		Currency:    currency,
		Stock:       req.Stock,
		Images:      cleanList(req.Images, false),
		Tags:        cleanList(req.Tags, true),
		Materials:   strings.TrimSpace(req.Materials),
		Status:      status,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.publish(ctx, events.SubjectProductCreated, product)
	s.log.WithFields(logrus.Fields{"product_id": product.ID, "artisan_id": artisanID, "status": status}).Info("Product created")
	return product, nil
}

// Update applies a partial update. Artisans may edit their own products and
// move them between DRAFT, ACTIVE and INACTIVE; REJECTED is an admin decision.
func (s *ProductService) Update(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, req models.UpdateProductRequest) (*models.Product, error) {
	product, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(product, actorID, role) {
		return nil, ErrForbidden
	}

	changes := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if len(name) < 2 {
			return nil, validationError("name must be at least 2 characters")
		}
		product.Name = name
		changes["name"] = name
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
		changes["description"] = product.Description
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
		changes["category"] = product.Category
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, validationError("price must be greater than 0")
		}
		product.Price = *req.Price
		changes["price"] = product.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, validationError("stock cannot be negative")
		}
		product.Stock = *req.Stock
		changes["stock"] = product.Stock
	}
	if req.Images != nil {
		product.Images = cleanList(req.Images, false)
		changes["images"] = product.Images
	}
	if req.Tags != nil {
		product.Tags = cleanList(req.Tags, true)
		changes["tags"] = product.Tags
	}
	if req.Materials != nil {
		product.Materials = strings.TrimSpace(*req.Materials)
		changes["materials"] = product.Materials
	}
	if req.Status != nil {
		status := models.ProductStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		if err := s.checkStatusChange(ctx, product, status, role); err != nil {
			return nil, err
		}
		product.Status = status
		changes["status"] = status
	}

	if err := s.products.Update(ctx, id, changes); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.publish(ctx, events.SubjectProductUpdated, product)
	return product, nil
}

func (s *ProductService) checkStatusChange(ctx context.Context, product *models.Product, status models.ProductStatus, role models.Role) error {
	if !status.IsValid() {
		return validationError("unknown product status %q", status)
	}
	if role == models.RoleAdmin || status == product.Status {
		return nil
	}
	if status == models.ProductStatusRejected || product.Status == models.ProductStatusRejected {
		return ErrForbidden
	}
	if status == models.ProductStatusActive {
		return s.requireVerified(ctx, product.ArtisanID)
	}
	return nil
}

func (s *ProductService) requireVerified(ctx context.Context, artisanID uuid.UUID) error {
	artisan, err := s.users.GetByID(ctx, artisanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !artisan.IsVerified {
		return ErrArtisanNotVerified
	}
	return nil
}

// UpdateStock sets the available quantity of the artisan's product
func (s *ProductService) UpdateStock(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, stock int) (*models.Product, error) {
	return s.Update(ctx, actorID, role, id, models.UpdateProductRequest{Stock: &stock})
}

// Delete soft-deletes a product owned by the caller
func (s *ProductService) Delete(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID) error {
	product, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(product, actorID, role) {
		return ErrForbidden
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.publish(ctx, events.SubjectProductDeleted, map[string]interface{}{"id": id, "artisanId": product.ArtisanID})
	return nil
}

// Moderate sets a product's status on behalf of an admin
func (s *ProductService) Moderate(ctx context.Context, id uuid.UUID, status models.ProductStatus) (*models.Product, error) {
	switch status {
	case models.ProductStatusActive, models.ProductStatusInactive, models.ProductStatusRejected:
	default:
		return nil, validationError("moderation status must be ACTIVE, INACTIVE or REJECTED")
	}
	if err := s.products.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	product, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.SubjectProductUpdated, product)
	s.log.WithFields(logrus.Fields{"product_id": id, "status": status}).Info("Product moderated")
	return product, nil
}

func (s *ProductService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.publisher.Publish(ctx, subject, data); err != nil {
		s.log.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}

// cleanList trims entries and drops blanks and duplicates
func cleanList(values []string, lower bool) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
