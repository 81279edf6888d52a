package services

import (
	"context"
	"time"

	"artisan-marketplace/internal/clients"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/razorpay"
	"artisan-marketplace/internal/repository"
	"artisan-marketplace/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
)

func testLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil && user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, filters repository.UserFilters) ([]models.User, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.User), args.Error(1)
}

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

var _ repository.ProductRepository = (*MockProductRepository)(nil)

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	if args.Error(0) == nil {
		product.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filters models.ProductFilters) ([]models.Product, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) Update(ctx context.Context, id uuid.UUID, changes map[string]interface{}) error {
	args := m.Called(ctx, id, changes)
	return args.Error(0)
}

func (m *MockProductRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProductStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.CategoryCount), args.Error(1)
}

func (m *MockProductRepository) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	m.Called(ctx, ids)
}

func (m *MockProductRepository) RedisHealth(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockMessageRepository is a mock implementation of MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

var _ repository.MessageRepository = (*MockMessageRepository)(nil)

func (m *MockMessageRepository) Create(ctx context.Context, msg *models.AdminMessage) error {
	args := m.Called(ctx, msg)
	if args.Error(0) == nil {
		msg.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockMessageRepository) Conversation(ctx context.Context, userID, counterpartID uuid.UUID, page, limit int) ([]models.AdminMessage, int64, error) {
	args := m.Called(ctx, userID, counterpartID, page, limit)
	return args.Get(0).([]models.AdminMessage), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessageRepository) Conversations(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.ConversationSummary), args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, readerID, senderID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, readerID, senderID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessageRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

var _ repository.OrderRepository = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) CreateWithStock(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	if args.Error(0) == nil {
		order.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filters models.OrderFilters) ([]models.Order, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]models.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) ApplyStatusChange(ctx context.Context, order *models.Order, from models.OrderStatus, entry *models.OrderTimeline) error {
	args := m.Called(ctx, order, from, entry)
	return args.Error(0)
}

func (m *MockOrderRepository) Cancel(ctx context.Context, order *models.Order, from models.OrderStatus, entry *models.OrderTimeline) error {
	args := m.Called(ctx, order, from, entry)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

var _ repository.PaymentRepository = (*MockPaymentRepository)(nil)

func (m *MockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	if args.Error(0) == nil {
		payment.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error) {
	args := m.Called(ctx, razorpayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByRazorpayPaymentID(ctx context.Context, razorpayPaymentID string) (*models.Payment, error) {
	args := m.Called(ctx, razorpayPaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetLatestByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SaveWithOrder(ctx context.Context, payment *models.Payment, orderUpdates map[string]interface{}, entry *models.OrderTimeline) error {
	args := m.Called(ctx, payment, orderUpdates, entry)
	return args.Error(0)
}

// MockAIGenerationRepository is a mock implementation of AIGenerationRepository
type MockAIGenerationRepository struct {
	mock.Mock
}

var _ repository.AIGenerationRepository = (*MockAIGenerationRepository)(nil)

func (m *MockAIGenerationRepository) Create(ctx context.Context, gen *models.AIGeneration) error {
	args := m.Called(ctx, gen)
	return args.Error(0)
}

func (m *MockAIGenerationRepository) ListByUser(ctx context.Context, userID uuid.UUID, tool *models.AITool, page, limit int) ([]models.AIGeneration, int64, error) {
	args := m.Called(ctx, userID, tool, page, limit)
	return args.Get(0).([]models.AIGeneration), args.Get(1).(int64), args.Error(2)
}

// MockPublisher records published events
type MockPublisher struct {
	mock.Mock
}

var _ EventPublisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func (m *MockPublisher) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockNotifier records realtime pushes
type MockNotifier struct {
	mock.Mock
}

var _ Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) SendToUser(userID uuid.UUID, eventType string, data interface{}) {
	m.Called(userID, eventType, data)
}

// MockGateway is a mock implementation of razorpay.Gateway
type MockGateway struct {
	mock.Mock
}

var _ razorpay.Gateway = (*MockGateway)(nil)

func (m *MockGateway) KeyID() string {
	return "rzp_test_key"
}

func (m *MockGateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (*razorpay.Order, error) {
	args := m.Called(ctx, amountPaise, currency, receipt, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*razorpay.Order), args.Error(1)
}

func (m *MockGateway) FetchPayment(ctx context.Context, paymentID string) (*razorpay.PaymentDetails, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*razorpay.PaymentDetails), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, paymentID string, amountPaise int64, reason string) (*razorpay.Refund, error) {
	args := m.Called(ctx, paymentID, amountPaise, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*razorpay.Refund), args.Error(1)
}

func (m *MockGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0)
}

func (m *MockGateway) VerifyWebhook(payload []byte, signature string) error {
	args := m.Called(payload, signature)
	return args.Error(0)
}

func (m *MockGateway) ParseWebhook(payload []byte) (*razorpay.WebhookEvent, error) {
	return razorpay.ParseWebhook(payload)
}

// MockGenerator is a mock implementation of clients.Generator
type MockGenerator struct {
	mock.Mock
}

var _ clients.Generator = (*MockGenerator)(nil)

func (m *MockGenerator) GenerateText(ctx context.Context, system, prompt string, jsonOutput bool) (string, error) {
	args := m.Called(ctx, system, prompt, jsonOutput)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) DescribeMedia(ctx context.Context, instruction string, data []byte, mimeType string) (string, error) {
	args := m.Called(ctx, instruction, data, mimeType)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockGenerator) TextModel() string  { return "test-text-model" }
func (m *MockGenerator) ImageModel() string { return "test-image-model" }

// MockMediaStore is a mock implementation of storage.MediaStore
type MockMediaStore struct {
	mock.Mock
}

var _ storage.MediaStore = (*MockMediaStore)(nil)

func (m *MockMediaStore) Upload(ctx context.Context, data []byte, opts storage.UploadOptions) (*storage.Object, error) {
	args := m.Called(ctx, data, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Object), args.Error(1)
}

func (m *MockMediaStore) Delete(ctx context.Context, publicID string, kind storage.Kind) error {
	args := m.Called(ctx, publicID, kind)
	return args.Error(0)
}

func (m *MockMediaStore) Provider() string {
	return "mock"
}
