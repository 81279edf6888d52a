package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderStatus represents the delivery lifecycle of an order
type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "PLACED"           // Created, awaiting payment
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"        // Paid
	OrderStatusProcessing     OrderStatus = "PROCESSING"       // Artisan is preparing
	OrderStatusShipped        OrderStatus = "SHIPPED"          // Handed to courier
	OrderStatusInTransit      OrderStatus = "IN_TRANSIT"       // Moving between cities
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY" // Last mile
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// PaymentStatus represents the money flow of an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Order is a customer purchase, possibly spanning several artisans
type Order struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderNumber       string         `json:"orderNumber" gorm:"type:varchar(32);not null;uniqueIndex:idx_orders_number"`
	CustomerID        uuid.UUID      `json:"customerId" gorm:"type:uuid;not null;index:idx_orders_customer"`
	Status            OrderStatus    `json:"status" gorm:"type:varchar(20);not null;default:'PLACED';index:idx_orders_status"`
	PaymentStatus     PaymentStatus  `json:"paymentStatus" gorm:"type:varchar(20);not null;default:'PENDING'"`
	Currency          string         `json:"currency" gorm:"type:varchar(3);not null;default:'INR'"`
	Subtotal          float64        `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	ShippingCost      float64        `json:"shippingCost" gorm:"type:decimal(10,2);default:0"`
	Total             float64        `json:"total" gorm:"type:decimal(10,2);not null"`
	ShippingName      string         `json:"shippingName" gorm:"type:varchar(255);not null"`
	ShippingPhone     string         `json:"shippingPhone" gorm:"type:varchar(20)"`
	ShippingAddress   string         `json:"shippingAddress" gorm:"type:text;not null"`
	ShippingCity      string         `json:"shippingCity" gorm:"type:varchar(100);not null"`
	ShippingState     string         `json:"shippingState" gorm:"type:varchar(100)"`
	ShippingPincode   string         `json:"shippingPincode" gorm:"type:varchar(10)"`
	DestinationLat    *float64       `json:"destinationLat,omitempty"`
	DestinationLng    *float64       `json:"destinationLng,omitempty"`
	CurrentCity       string         `json:"currentCity,omitempty" gorm:"type:varchar(100)"`
	CurrentLat        *float64       `json:"currentLat,omitempty"`
	CurrentLng        *float64       `json:"currentLng,omitempty"`
	TrackingNumber    string         `json:"trackingNumber,omitempty" gorm:"type:varchar(64)"`
	Carrier           string         `json:"carrier,omitempty" gorm:"type:varchar(64)"`
	EstimatedDelivery *time.Time     `json:"estimatedDelivery,omitempty"`
	Notes             string         `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt         time.Time      `json:"createdAt" gorm:"index:idx_orders_created,sort:desc"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`

	Items    []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Timeline []OrderTimeline `json:"timeline,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// HasArtisan reports whether any line of the order is fulfilled by artisanID
func (o *Order) HasArtisan(artisanID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.ArtisanID == artisanID {
			return true
		}
	}
	return false
}

// OrderItem represents a line in an order
type OrderItem struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID     uuid.UUID `json:"orderId" gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID `json:"productId" gorm:"type:uuid;not null"`
	ArtisanID   uuid.UUID `json:"artisanId" gorm:"type:uuid;not null;index:idx_order_items_artisan"`
	ProductName string    `json:"productName" gorm:"type:varchar(255);not null"`
	Image       string    `json:"image,omitempty" gorm:"type:varchar(500)"`
	UnitPrice   float64   `json:"unitPrice" gorm:"type:decimal(10,2);not null"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	TotalPrice  float64   `json:"totalPrice" gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName returns the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// OrderTimeline records a status change and where the parcel was at that time
type OrderTimeline struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID   uuid.UUID      `json:"orderId" gorm:"type:uuid;not null;index"`
	Status    OrderStatus    `json:"status" gorm:"type:varchar(20);not null"`
	Location  string         `json:"location,omitempty" gorm:"type:varchar(100)"`
	Latitude  *float64       `json:"latitude,omitempty"`
	Longitude *float64       `json:"longitude,omitempty"`
	Note      string         `json:"note,omitempty" gorm:"type:text"`
	CreatedBy string         `json:"createdBy" gorm:"type:varchar(64)"`
	Metadata  datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"createdAt"`
}

// TableName returns the table name for the OrderTimeline model
func (OrderTimeline) TableName() string {
	return "order_timeline"
}

// OrderItemRequest is one requested line when placing an order
type OrderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest represents a checkout request
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingName    string             `json:"shippingName" binding:"required"`
	ShippingPhone   string             `json:"shippingPhone" binding:"required"`
	ShippingAddress string             `json:"shippingAddress" binding:"required"`
	ShippingCity    string             `json:"shippingCity" binding:"required"`
	ShippingState   string             `json:"shippingState,omitempty"`
	ShippingPincode string             `json:"shippingPincode,omitempty"`
	Notes           string             `json:"notes,omitempty"`
}

// UpdateOrderStatusRequest moves an order along its lifecycle
type UpdateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	Location       string `json:"location,omitempty"`
	Note           string `json:"note,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
}

// OrderFilters represents filters for querying orders
type OrderFilters struct {
	CustomerID *uuid.UUID
	ArtisanID  *uuid.UUID
	Status     *OrderStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	Limit      int
}

// TrackingPoint is a geocoded stop in a tracking view
type TrackingPoint struct {
	City      string   `json:"city"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// TrackingInfo is the customer-facing tracking view of an order
type TrackingInfo struct {
	OrderID             uuid.UUID       `json:"orderId"`
	OrderNumber         string          `json:"orderNumber"`
	Status              OrderStatus     `json:"status"`
	PaymentStatus       PaymentStatus   `json:"paymentStatus"`
	TrackingNumber      string          `json:"trackingNumber,omitempty"`
	Carrier             string          `json:"carrier,omitempty"`
	Origin              *TrackingPoint  `json:"origin,omitempty"`
	Current             *TrackingPoint  `json:"current,omitempty"`
	Destination         TrackingPoint   `json:"destination"`
	RemainingDistanceKm *float64        `json:"remainingDistanceKm,omitempty"`
	EstimatedDelivery   *time.Time      `json:"estimatedDelivery,omitempty"`
	Timeline            []OrderTimeline `json:"timeline"`
}
