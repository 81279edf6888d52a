package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the marketplace role carried in the access token
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleArtisan  Role = "artisan"
	RoleCustomer Role = "customer"
)

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleArtisan, RoleCustomer:
		return true
	}
	return false
}

// ParseRole normalizes a role string from a request or token
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// User is any account on the marketplace. Artisan-only fields stay empty for
// customers and admins.
type User struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name         string         `json:"name" gorm:"type:varchar(255);not null"`
	Email        string         `json:"email" gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email"`
	PasswordHash string         `json:"-" gorm:"type:varchar(255);not null"`
	Role         Role           `json:"role" gorm:"type:varchar(20);not null;index:idx_users_role"`
	Phone        string         `json:"phone,omitempty" gorm:"type:varchar(20)"`
	City         string         `json:"city,omitempty" gorm:"type:varchar(100)"`
	State        string         `json:"state,omitempty" gorm:"type:varchar(100)"`
	ShopName     string         `json:"shopName,omitempty" gorm:"type:varchar(255)"`
	Bio          string         `json:"bio,omitempty" gorm:"type:text"`
	Craft        string         `json:"craft,omitempty" gorm:"type:varchar(100)"`
	AvatarURL    string         `json:"avatarUrl,omitempty" gorm:"type:varchar(500)"`
	IsVerified   bool           `json:"isVerified" gorm:"default:false"`
	LastLoginAt  *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// ArtisanProfile is the public view of an artisan shown next to catalog
// entries. It reads the users table but carries no contact details.
type ArtisanProfile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ShopName  string    `json:"shopName,omitempty"`
	City      string    `json:"city,omitempty"`
	Craft     string    `json:"craft,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
}

// TableName returns the table name for the ArtisanProfile model
func (ArtisanProfile) TableName() string {
	return "users"
}

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"required"`
	Phone    string `json:"phone,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	ShopName string `json:"shopName,omitempty"`
	Craft    string `json:"craft,omitempty"`
}

// LoginRequest represents a sign-in request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest represents a partial profile update
type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	City      *string `json:"city,omitempty"`
	State     *string `json:"state,omitempty"`
	ShopName  *string `json:"shopName,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Craft     *string `json:"craft,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}
