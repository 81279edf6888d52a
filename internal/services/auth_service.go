package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"artisan-marketplace/internal/middleware"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles accounts, credentials and access tokens
type AuthService struct {
	users      repository.UserRepository
	jwtSecret  string
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
	log        *logrus.Entry
}

// NewAuthService creates a new AuthService
func NewAuthService(users repository.UserRepository, jwtSecret string, tokenTTL time.Duration, log *logrus.Logger) *AuthService {
	return &AuthService{
		users:      users,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		log:        log.WithField("component", "auth_service"),
	}
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Register creates a customer or artisan account and signs it in. Admin
// accounts are only ever provisioned by EnsureAdmin.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	role := models.ParseRole(req.Role)
	if role != models.RoleCustomer && role != models.RoleArtisan {
		return nil, validationError("role must be customer or artisan")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         role,
		Phone:        strings.TrimSpace(req.Phone),
		City:         strings.TrimSpace(req.City),
		State:        strings.TrimSpace(req.State),
	}
	if role == models.RoleArtisan {
		user.ShopName = strings.TrimSpace(req.ShopName)
		if user.ShopName == "" {
			user.ShopName = user.Name
		}
		user.Craft = strings.TrimSpace(req.Craft)
	} else {
		// Customers need no review
		user.IsVerified = true
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": role}).Info("User registered")
	return s.issue(user)
}

// Login checks credentials and returns a fresh token
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	} else {
		user.LastLoginAt = &now
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*models.AuthResponse, error) {
	token, expiresAt, err := middleware.IssueToken(s.jwtSecret, user, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// GetUser returns a single account
func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies a partial profile update to the caller's account
func (s *AuthService) UpdateProfile(ctx context.Context, id uuid.UUID, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if len(name) < 2 {
			return nil, validationError("name must be at least 2 characters")
		}
		user.Name = name
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.City != nil {
		user.City = strings.TrimSpace(*req.City)
	}
	if req.State != nil {
		user.State = strings.TrimSpace(*req.State)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if user.Role == models.RoleArtisan {
		if req.ShopName != nil {
			user.ShopName = strings.TrimSpace(*req.ShopName)
		}
		if req.Craft != nil {
			user.Craft = strings.TrimSpace(*req.Craft)
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if len(next) < 8 || len(next) > 72 {
		return validationError("new password must be between 8 and 72 characters")
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	return s.users.Update(ctx, user)
}

// EnsureAdmin provisions the bootstrap admin account if it does not exist yet
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		s.log.Info("ADMIN_EMAIL not configured, skipping admin bootstrap")
		return nil
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			s.log.WithField("email", email).Warn("Bootstrap admin email belongs to a non-admin account")
		}
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	admin := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsVerified:   true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return err
	}
	s.log.WithField("user_id", admin.ID).Info("Bootstrap admin created")
	return nil
}

// ListUsers is the admin user directory
func (s *AuthService) ListUsers(ctx context.Context, filters repository.UserFilters) ([]models.User, int64, error) {
	return s.users.List(ctx, filters)
}

// SetArtisanVerified approves or suspends an artisan account
func (s *AuthService) SetArtisanVerified(ctx context.Context, id uuid.UUID, verified bool) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleArtisan {
		return nil, validationError("user is not an artisan")
	}
	if user.IsVerified == verified {
		return user, nil
	}
	user.IsVerified = verified
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "verified": verified}).Info("Artisan verification changed")
	return user, nil
}
