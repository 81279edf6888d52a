package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"artisan-marketplace/internal/middleware"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/repository"
	"artisan-marketplace/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func nullLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

// asUser stands in for AuthMiddleware
func asUser(id uuid.UUID, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, id.String())
		c.Set(middleware.ContextUserRole, string(role))
		c.Next()
	}
}

func doJSON(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doMultipart(t *testing.T, router http.Handler, path, filename, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		header["Content-Type"] = []string{contentType}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success    bool                   `json:"success"`
	Data       json.RawMessage        `json:"data"`
	Message    string                 `json:"message"`
	Pagination *models.PaginationInfo `json:"pagination"`
	Error      models.Error           `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

type MockAuthAPI struct{ mock.Mock }

func (m *MockAuthAPI) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResponse), args.Error(1)
}

func (m *MockAuthAPI) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthResponse), args.Error(1)
}

func (m *MockAuthAPI) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthAPI) UpdateProfile(ctx context.Context, id uuid.UUID, req models.UpdateProfileRequest) (*models.User, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthAPI) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	return m.Called(ctx, id, current, next).Error(0)
}

func (m *MockAuthAPI) ListUsers(ctx context.Context, filters repository.UserFilters) ([]models.User, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockAuthAPI) SetArtisanVerified(ctx context.Context, id uuid.UUID, verified bool) (*models.User, error) {
	args := m.Called(ctx, id, verified)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockCatalogAPI struct{ mock.Mock }

func (m *MockCatalogAPI) ListPublic(ctx context.Context, filters models.ProductFilters) ([]models.Product, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogAPI) ListForArtisan(ctx context.Context, artisanID uuid.UUID, filters models.ProductFilters) ([]models.Product, int64, error) {
	args := m.Called(ctx, artisanID, filters)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogAPI) ListAll(ctx context.Context, filters models.ProductFilters) ([]models.Product, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogAPI) Get(ctx context.Context, id uuid.UUID, viewerID uuid.UUID, viewerRole models.Role) (*models.Product, error) {
	args := m.Called(ctx, id, viewerID, viewerRole)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalogAPI) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.CategoryCount), args.Error(1)
}

func (m *MockCatalogAPI) Create(ctx context.Context, artisanID uuid.UUID, req models.CreateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, artisanID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalogAPI) Update(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, req models.UpdateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, actorID, role, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalogAPI) UpdateStock(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, stock int) (*models.Product, error) {
	args := m.Called(ctx, actorID, role, id, stock)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalogAPI) Delete(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID) error {
	return m.Called(ctx, actorID, role, id).Error(0)
}

func (m *MockCatalogAPI) Moderate(ctx context.Context, id uuid.UUID, status models.ProductStatus) (*models.Product, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

type MockExportAPI struct{ mock.Mock }

func (m *MockExportAPI) Products(ctx context.Context, filters models.ProductFilters) ([]byte, string, error) {
	args := m.Called(ctx, filters)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}

func (m *MockExportAPI) Orders(ctx context.Context, filters models.OrderFilters) ([]byte, string, error) {
	args := m.Called(ctx, filters)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}

type MockMessagingAPI struct{ mock.Mock }

func (m *MockMessagingAPI) Send(ctx context.Context, senderID uuid.UUID, senderRole models.Role, req models.SendMessageRequest) (*models.AdminMessage, error) {
	args := m.Called(ctx, senderID, senderRole, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AdminMessage), args.Error(1)
}

func (m *MockMessagingAPI) Conversation(ctx context.Context, userID uuid.UUID, role models.Role, counterpartID uuid.UUID, page, limit int, markRead bool) ([]models.AdminMessage, int64, error) {
	args := m.Called(ctx, userID, role, counterpartID, page, limit, markRead)
	return args.Get(0).([]models.AdminMessage), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessagingAPI) Conversations(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID, role)
	return args.Get(0).([]models.ConversationSummary), args.Error(1)
}

func (m *MockMessagingAPI) MarkRead(ctx context.Context, readerID, counterpartID uuid.UUID) (int64, error) {
	args := m.Called(ctx, readerID, counterpartID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessagingAPI) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessagingAPI) Contacts(ctx context.Context, role models.Role, search string, page, limit int) ([]models.User, int64, error) {
	args := m.Called(ctx, role, search, page, limit)
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

type MockSocketServer struct{ mock.Mock }

func (m *MockSocketServer) ServeWs(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	m.Called(userID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

type MockOrdersAPI struct{ mock.Mock }

func (m *MockOrdersAPI) PlaceOrder(ctx context.Context, customerID uuid.UUID, req models.CreateOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrdersAPI) GetOrder(ctx context.Context, viewerID uuid.UUID, role models.Role, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, viewerID, role, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrdersAPI) ListOrders(ctx context.Context, viewerID uuid.UUID, role models.Role, filters models.OrderFilters) ([]models.Order, int64, error) {
	args := m.Called(ctx, viewerID, role, filters)
	return args.Get(0).([]models.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrdersAPI) UpdateStatus(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, req models.UpdateOrderStatusRequest) (*models.Order, error) {
	args := m.Called(ctx, actorID, role, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrdersAPI) Cancel(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, reason string) (*models.Order, error) {
	args := m.Called(ctx, actorID, role, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrdersAPI) Tracking(ctx context.Context, viewerID uuid.UUID, role models.Role, id uuid.UUID) (*models.TrackingInfo, error) {
	args := m.Called(ctx, viewerID, role, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrackingInfo), args.Error(1)
}

type MockInvoiceAPI struct{ mock.Mock }

func (m *MockInvoiceAPI) Generate(ctx context.Context, viewerID uuid.UUID, role models.Role, orderID uuid.UUID) ([]byte, string, error) {
	args := m.Called(ctx, viewerID, role, orderID)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}

type MockPaymentsAPI struct{ mock.Mock }

func (m *MockPaymentsAPI) CreateCheckout(ctx context.Context, customerID uuid.UUID, req models.CreatePaymentRequest) (*models.CheckoutResponse, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutResponse), args.Error(1)
}

func (m *MockPaymentsAPI) Verify(ctx context.Context, customerID uuid.UUID, req models.VerifyPaymentRequest) (*models.Payment, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentsAPI) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return m.Called(ctx, payload, signature).Error(0)
}

func (m *MockPaymentsAPI) Refund(ctx context.Context, orderID uuid.UUID, req models.RefundPaymentRequest) (*models.Payment, error) {
	args := m.Called(ctx, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentsAPI) ForOrder(ctx context.Context, viewerID uuid.UUID, role models.Role, orderID uuid.UUID) ([]models.Payment, error) {
	args := m.Called(ctx, viewerID, role, orderID)
	return args.Get(0).([]models.Payment), args.Error(1)
}

type MockMediaAPI struct{ mock.Mock }

func (m *MockMediaAPI) Upload(ctx context.Context, userID uuid.UUID, filename, declaredType string, data []byte) (*storage.Object, error) {
	args := m.Called(ctx, userID, filename, declaredType, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Object), args.Error(1)
}

func (m *MockMediaAPI) Delete(ctx context.Context, userID uuid.UUID, isAdmin bool, publicID string, kind storage.Kind) error {
	return m.Called(ctx, userID, isAdmin, publicID, kind).Error(0)
}

type MockAIAPI struct{ mock.Mock }

func (m *MockAIAPI) Content(ctx context.Context, userID uuid.UUID, req models.ContentRequest) (*models.ContentResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContentResult), args.Error(1)
}

func (m *MockAIAPI) Pricing(ctx context.Context, userID uuid.UUID, req models.PricingRequest) (*models.PricingResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PricingResult), args.Error(1)
}

func (m *MockAIAPI) Marketing(ctx context.Context, userID uuid.UUID, req models.MarketingRequest) (*models.MarketingResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarketingResult), args.Error(1)
}

func (m *MockAIAPI) Image(ctx context.Context, userID uuid.UUID, req models.ImageRequest) (*models.ImageResult, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImageResult), args.Error(1)
}

func (m *MockAIAPI) Voice(ctx context.Context, userID uuid.UUID, data []byte, declaredType string, draftListing bool) (*models.VoiceResult, error) {
	args := m.Called(ctx, userID, data, declaredType, draftListing)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoiceResult), args.Error(1)
}

func (m *MockAIAPI) DescribeImage(ctx context.Context, userID uuid.UUID, data []byte, declaredType string) (*models.ImageResult, error) {
	args := m.Called(ctx, userID, data, declaredType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImageResult), args.Error(1)
}

func (m *MockAIAPI) History(ctx context.Context, userID uuid.UUID, tool *models.AITool, page, limit int) ([]models.AIGeneration, int64, error) {
	args := m.Called(ctx, userID, tool, page, limit)
	return args.Get(0).([]models.AIGeneration), args.Get(1).(int64), args.Error(2)
}

func (m *MockAIAPI) Available() bool {
	return m.Called().Bool(0)
}

type MockDashboardAPI struct{ mock.Mock }

func (m *MockDashboardAPI) Stats(ctx context.Context, adminID uuid.UUID) (*models.DashboardStats, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardStats), args.Error(1)
}
