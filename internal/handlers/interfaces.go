package handlers

import (
	"context"
	"net/http"

	"artisan-marketplace/internal/mcptools"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/repository"
	"artisan-marketplace/internal/storage"

	"github.com/google/uuid"
)

// The handlers depend on these narrow views of the services so they can be
// tested against mocks. Each is satisfied by the matching *services type.

type AuthAPI interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req models.UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error
	ListUsers(ctx context.Context, filters repository.UserFilters) ([]models.User, int64, error)
	SetArtisanVerified(ctx context.Context, id uuid.UUID, verified bool) (*models.User, error)
}

type CatalogAPI interface {
	ListPublic(ctx context.Context, filters models.ProductFilters) ([]models.Product, int64, error)
	ListForArtisan(ctx context.Context, artisanID uuid.UUID, filters models.ProductFilters) ([]models.Product, int64, error)
	ListAll(ctx context.Context, filters models.ProductFilters) ([]models.Product, int64, error)
	Get(ctx context.Context, id uuid.UUID, viewerID uuid.UUID, viewerRole models.Role) (*models.Product, error)
	Categories(ctx context.Context) ([]models.CategoryCount, error)
	Create(ctx context.Context, artisanID uuid.UUID, req models.CreateProductRequest) (*models.Product, error)
	Update(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, req models.UpdateProductRequest) (*models.Product, error)
	UpdateStock(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, stock int) (*models.Product, error)
	Delete(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID) error
	Moderate(ctx context.Context, id uuid.UUID, status models.ProductStatus) (*models.Product, error)
}

// ExportAPI renders spreadsheets and returns the bytes and a filename
type ExportAPI interface {
	Products(ctx context.Context, filters models.ProductFilters) ([]byte, string, error)
	Orders(ctx context.Context, filters models.OrderFilters) ([]byte, string, error)
}

type MessagingAPI interface {
	Send(ctx context.Context, senderID uuid.UUID, senderRole models.Role, req models.SendMessageRequest) (*models.AdminMessage, error)
	Conversation(ctx context.Context, userID uuid.UUID, role models.Role, counterpartID uuid.UUID, page, limit int, markRead bool) ([]models.AdminMessage, int64, error)
	Conversations(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.ConversationSummary, error)
	MarkRead(ctx context.Context, readerID, counterpartID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Contacts(ctx context.Context, role models.Role, search string, page, limit int) ([]models.User, int64, error)
}

// SocketServer attaches a WebSocket connection to a user, see ws.Hub
type SocketServer interface {
	ServeWs(w http.ResponseWriter, r *http.Request, userID uuid.UUID)
}

type OrdersAPI interface {
	PlaceOrder(ctx context.Context, customerID uuid.UUID, req models.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, viewerID uuid.UUID, role models.Role, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, viewerID uuid.UUID, role models.Role, filters models.OrderFilters) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, req models.UpdateOrderStatusRequest) (*models.Order, error)
	Cancel(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, reason string) (*models.Order, error)
	Tracking(ctx context.Context, viewerID uuid.UUID, role models.Role, id uuid.UUID) (*models.TrackingInfo, error)
}

type InvoiceAPI interface {
	Generate(ctx context.Context, viewerID uuid.UUID, role models.Role, orderID uuid.UUID) ([]byte, string, error)
}

type PaymentsAPI interface {
	CreateCheckout(ctx context.Context, customerID uuid.UUID, req models.CreatePaymentRequest) (*models.CheckoutResponse, error)
	Verify(ctx context.Context, customerID uuid.UUID, req models.VerifyPaymentRequest) (*models.Payment, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	Refund(ctx context.Context, orderID uuid.UUID, req models.RefundPaymentRequest) (*models.Payment, error)
	ForOrder(ctx context.Context, viewerID uuid.UUID, role models.Role, orderID uuid.UUID) ([]models.Payment, error)
}

type MediaAPI interface {
	Upload(ctx context.Context, userID uuid.UUID, filename, declaredType string, data []byte) (*storage.Object, error)
	Delete(ctx context.Context, userID uuid.UUID, isAdmin bool, publicID string, kind storage.Kind) error
}

// AIAPI is the MCP toolset plus the REST-only operations
type AIAPI interface {
	mcptools.Toolset
	DescribeImage(ctx context.Context, userID uuid.UUID, data []byte, declaredType string) (*models.ImageResult, error)
	History(ctx context.Context, userID uuid.UUID, tool *models.AITool, page, limit int) ([]models.AIGeneration, int64, error)
	Available() bool
}

type DashboardAPI interface {
	Stats(ctx context.Context, adminID uuid.UUID) (*models.DashboardStats, error)
}
