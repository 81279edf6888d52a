package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
	ProductStatusRejected ProductStatus = "REJECTED"
)

// IsValid reports whether s is a known product status
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusInactive, ProductStatusRejected:
		return true
	}
	return false
}

// Product is a handmade item listed by an artisan
type Product struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ArtisanID   uuid.UUID      `json:"artisanId" gorm:"type:uuid;not null;index:idx_products_artisan"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description" gorm:"type:text"`
	Category    string         `json:"category" gorm:"type:varchar(100);index:idx_products_category"`
	Price       float64        `json:"price" gorm:"type:decimal(10,2);not null"`
	Currency    string         `json:"currency" gorm:"type:varchar(3);not null;default:'INR'"`
	Stock       int            `json:"stock" gorm:"not null;default:0"`
	Images      pq.StringArray `json:"images" gorm:"type:text[]"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	Materials   string         `json:"materials,omitempty" gorm:"type:varchar(500)"`
	Status      ProductStatus  `json:"status" gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_products_status"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	Artisan *ArtisanProfile `json:"artisan,omitempty" gorm:"foreignKey:ArtisanID"`
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// CreateProductRequest represents a request to list a new product
type CreateProductRequest struct {
	Name        string   `json:"name" binding:"required,min=2,max=255"`
	Description string   `json:"description"`
	Category    string   `json:"category" binding:"required"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	Currency    string   `json:"currency,omitempty"`
	Stock       int      `json:"stock" binding:"gte=0"`
	Images      []string `json:"images,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Materials   string   `json:"materials,omitempty"`
	Publish     bool     `json:"publish,omitempty"`
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	Images      []string `json:"images,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Materials   *string  `json:"materials,omitempty"`
	Status      *string  `json:"status,omitempty"`
}

// ProductFilters narrows a catalog listing
type ProductFilters struct {
	Query     string
	Category  string
	ArtisanID *uuid.UUID
	Status    []ProductStatus
	MinPrice  *float64
	MaxPrice  *float64
	SortBy    string
	Page      int
	Limit     int
}

// CategoryCount is a category with its active product count
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
