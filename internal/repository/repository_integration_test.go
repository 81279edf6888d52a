//go:build integration

package repository

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"artisan-marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RepositoryTestSuite runs the repositories against a real Postgres.
// Run with: TEST_DATABASE_URL=... go test -tags integration ./internal/repository/
type RepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	ctx      context.Context
	users    UserRepository
	products ProductRepository
	messages MessageRepository
	orders   OrderRepository
}

func (s *RepositoryTestSuite) SetupSuite() {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=artisan_marketplace_test port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		s.T().Skipf("Postgres not reachable: %v", err)
	}
	s.db = db

	err = s.db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.AdminMessage{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderTimeline{},
	)
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.users = NewUserRepository(db)
	s.products = NewProductRepository(db, nil)
	s.messages = NewMessageRepository(db)
	s.orders = NewOrderRepository(db)
}

func (s *RepositoryTestSuite) SetupTest() {
	s.Require().NoError(s.db.Exec(
		"TRUNCATE order_timeline, order_items, orders, admin_messages, products, users CASCADE").Error)
}

func (s *RepositoryTestSuite) newUser(name string, role models.Role) *models.User {
	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Phone:        "+919812345678",
		City:         "Jaipur",
		ShopName:     name + " Crafts",
		IsVerified:   true,
	}
	s.Require().NoError(s.users.Create(s.ctx, user))
	return user
}

func (s *RepositoryTestSuite) send(from, to *models.User, content string, at time.Time) {
	s.Require().NoError(s.messages.Create(s.ctx, &models.AdminMessage{
		ID:         uuid.New(),
		SenderID:   from.ID,
		ReceiverID: to.ID,
		SenderRole: from.Role,
		Content:    content,
		CreatedAt:  at,
	}))
}

func (s *RepositoryTestSuite) TestConversationsAndReadTracking() {
	admin := s.newUser("Asha", models.RoleAdmin)
	potter := s.newUser("Meera", models.RoleArtisan)
	weaver := s.newUser("Kabir", models.RoleArtisan)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.send(potter, admin, "Kiln photos uploaded", base)
	s.send(potter, admin, "Can you review the vase listing?", base.Add(time.Minute))
	s.send(admin, weaver, "Your shop is verified", base.Add(2*time.Minute))
	s.send(weaver, admin, "Thank you!", base.Add(3*time.Minute))
	s.send(admin, potter, "Looking now", base.Add(4*time.Minute))

	summaries, err := s.messages.Conversations(s.ctx, admin.ID)
	s.Require().NoError(err)
	s.Require().Len(summaries, 2)

	// newest thread first, last message per counterpart
	s.Equal(potter.ID, summaries[0].CounterpartID)
	s.Equal("Looking now", summaries[0].LastMessage)
	s.Equal(admin.ID, summaries[0].LastSenderID)
	s.Equal(models.RoleArtisan, summaries[0].CounterpartRole)
	s.Equal("Meera Crafts", summaries[0].ShopName)
	s.EqualValues(2, summaries[0].UnreadCount)

	s.Equal(weaver.ID, summaries[1].CounterpartID)
	s.Equal("Thank you!", summaries[1].LastMessage)
	s.EqualValues(1, summaries[1].UnreadCount)

	unread, err := s.messages.UnreadCount(s.ctx, admin.ID)
	s.Require().NoError(err)
	s.EqualValues(3, unread)

	// only messages sent to the caller count for the artisan
	potterUnread, err := s.messages.UnreadCount(s.ctx, potter.ID)
	s.Require().NoError(err)
	s.EqualValues(1, potterUnread)

	marked, err := s.messages.MarkRead(s.ctx, admin.ID, potter.ID, base.Add(time.Hour))
	s.Require().NoError(err)
	s.EqualValues(2, marked)

	summaries, err = s.messages.Conversations(s.ctx, admin.ID)
	s.Require().NoError(err)
	s.Require().Len(summaries, 2)
	s.EqualValues(0, summaries[0].UnreadCount)
	s.EqualValues(1, summaries[1].UnreadCount, "weaver thread untouched")

	unread, err = s.messages.UnreadCount(s.ctx, admin.ID)
	s.Require().NoError(err)
	s.EqualValues(1, unread)

	// the admin's own message to the potter is still unread on the potter's side
	potterUnread, err = s.messages.UnreadCount(s.ctx, potter.ID)
	s.Require().NoError(err)
	s.EqualValues(1, potterUnread)

	again, err := s.messages.MarkRead(s.ctx, admin.ID, potter.ID, base.Add(2*time.Hour))
	s.Require().NoError(err)
	s.EqualValues(0, again)
}

func (s *RepositoryTestSuite) TestConversationPagesOldestFirst() {
	admin := s.newUser("Asha", models.RoleAdmin)
	potter := s.newUser("Meera", models.RoleArtisan)
	other := s.newUser("Kabir", models.RoleArtisan)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.send(potter, admin, "one", base)
	s.send(admin, potter, "two", base.Add(time.Minute))
	s.send(potter, admin, "three", base.Add(2*time.Minute))
	s.send(other, admin, "elsewhere", base.Add(3*time.Minute))

	page, total, err := s.messages.Conversation(s.ctx, admin.ID, potter.ID, 1, 2)
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Require().Len(page, 2)
	s.Equal("one", page[0].Content)
	s.Equal("two", page[1].Content)
}

func (s *RepositoryTestSuite) TestCatalogCarriesPublicArtisanOnly() {
	artisan := s.newUser("Meera", models.RoleArtisan)
	product := &models.Product{
		ArtisanID: artisan.ID,
		Name:      "Blue Pottery Vase",
		Category:  "pottery",
		Price:     1200,
		Currency:  "INR",
		Stock:     4,
		Status:    models.ProductStatusActive,
	}
	s.Require().NoError(s.products.Create(s.ctx, product))

	got, err := s.products.GetByID(s.ctx, product.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Artisan)
	s.Equal("Meera Crafts", got.Artisan.ShopName)

	listed, _, err := s.products.List(s.ctx, models.ProductFilters{Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(listed, 1)

	body, err := json.Marshal(listed)
	s.Require().NoError(err)
	s.NotContains(string(body), artisan.Email)
	s.NotContains(string(body), artisan.Phone)
}

func (s *RepositoryTestSuite) TestPartialUpdateKeepsReservedStock() {
	artisan := s.newUser("Meera", models.RoleArtisan)
	customer := s.newUser("Ravi", models.RoleCustomer)
	product := &models.Product{
		ArtisanID: artisan.ID,
		Name:      "Vase",
		Category:  "pottery",
		Price:     500,
		Currency:  "INR",
		Stock:     5,
		Status:    models.ProductStatusActive,
	}
	s.Require().NoError(s.products.Create(s.ctx, product))

	// an edit started from the stock=5 copy
	stale, err := s.products.GetByID(s.ctx, product.ID)
	s.Require().NoError(err)
	s.Equal(5, stale.Stock)

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "ORD-20260301-TEST01",
		CustomerID:      customer.ID,
		Status:          models.OrderStatusPlaced,
		PaymentStatus:   models.PaymentStatusPending,
		Currency:        "INR",
		Subtotal:        1000,
		Total:           1000,
		ShippingName:    "Ravi",
		ShippingAddress: "12 MG Road",
		ShippingCity:    "Pune",
		Items: []models.OrderItem{{
			ProductID:   product.ID,
			ArtisanID:   artisan.ID,
			ProductName: "Vase",
			UnitPrice:   500,
			Quantity:    2,
			TotalPrice:  1000,
		}},
	}
	s.Require().NoError(s.orders.CreateWithStock(s.ctx, order))

	s.Require().NoError(s.products.Update(s.ctx, stale.ID, map[string]interface{}{"name": "Blue Vase"}))

	var stored models.Product
	s.Require().NoError(s.db.First(&stored, "id = ?", product.ID).Error)
	s.Equal("Blue Vase", stored.Name)
	s.Equal(3, stored.Stock)

	s.ErrorIs(s.products.Update(s.ctx, uuid.New(), map[string]interface{}{"name": "Ghost"}), ErrNotFound)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
