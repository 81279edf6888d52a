package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"artisan-marketplace/internal/events"
	"artisan-marketplace/internal/geocoding"
	"artisan-marketplace/internal/models"
	"artisan-marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	orderNumberAttempts = 3
	baseDeliveryDays    = 3
	kmPerExtraDay       = 500.0
	unknownRouteDays    = 7
)

// OrderConfig holds pricing rules for checkout
type OrderConfig struct {
	Currency              string
	FlatShippingCost      float64
	FreeShippingThreshold float64
}

// OrderService handles order placement, fulfilment and tracking
type OrderService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	users     repository.UserRepository
	publisher EventPublisher
	cfg       OrderConfig
	now       func() time.Time
	log       *logrus.Entry
}

// NewOrderService creates a new OrderService
func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository, users repository.UserRepository, publisher EventPublisher, cfg OrderConfig, log *logrus.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		products:  products,
		users:     users,
		publisher: publisherOrNoop(publisher),
		cfg:       cfg,
		now:       time.Now,
		log:       log.WithField("component", "order_service"),
	}
}

// OrderStatusEvent is published whenever an order moves
type OrderStatusEvent struct {
	OrderID     uuid.UUID          `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	CustomerID  uuid.UUID          `json:"customerId"`
	From        models.OrderStatus `json:"from"`
	To          models.OrderStatus `json:"to"`
	Location    string             `json:"location,omitempty"`
	ChangedBy   string             `json:"changedBy"`
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func newOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), suffix)
}

func actorRef(role models.Role, id uuid.UUID) string {
	return fmt.Sprintf("%s:%s", role, id)
}

// mergeItems folds repeated product lines together
func mergeItems(items []models.OrderItemRequest) ([]uuid.UUID, map[uuid.UUID]int, error) {
	ids := make([]uuid.UUID, 0, len(items))
	quantities := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, nil, validationError("invalid product id %q", item.ProductID)
		}
		if item.Quantity <= 0 {
			return nil, nil, validationError("quantity must be greater than 0")
		}
		if _, seen := quantities[id]; !seen {
			ids = append(ids, id)
		}
		quantities[id] += item.Quantity
	}
	return ids, quantities, nil
}

// PlaceOrder prices the cart from the live catalog and reserves stock
func (s *OrderService) PlaceOrder(ctx context.Context, customerID uuid.UUID, req models.CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, validationError("order must contain at least one item")
	}
	ids, quantities, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	currency := ""
	items := make([]models.OrderItem, 0, len(ids))
	subtotal := 0.0
	for _, id := range ids {
		product, ok := byID[id]
		if !ok || product.Status != models.ProductStatusActive {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, id)
		}
		qty := quantities[id]
		if product.Stock < qty {
			return nil, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, product.Name, product.Stock)
		}
		if currency == "" {
			currency = product.Currency
		} else if product.Currency != currency {
			return nil, validationError("all items must be priced in the same currency")
		}

		var image string
		if len(product.Images) > 0 {
			image = product.Images[0]
		}
		total := roundMoney(product.Price * float64(qty))
		subtotal += total
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ArtisanID:   product.ArtisanID,
			ProductName: product.Name,
			Image:       image,
			UnitPrice:   product.Price,
			Quantity:    qty,
			TotalPrice:  total,
		})
	}
	if currency == "" {
		currency = s.cfg.Currency
	}

	subtotal = roundMoney(subtotal)
	shipping := s.cfg.FlatShippingCost
	if s.cfg.FreeShippingThreshold > 0 && subtotal >= s.cfg.FreeShippingThreshold {
		shipping = 0
	}

	now := s.now()
	destLat, destLng := geocoding.LookupPtr(req.ShippingCity)
	origin := s.originCity(ctx, items[0].ArtisanID)
	eta := now.AddDate(0, 0, deliveryDays(origin, req.ShippingCity))

	order := &models.Order{
		CustomerID:        customerID,
		Status:            models.OrderStatusPlaced,
		PaymentStatus:     models.PaymentStatusPending,
		Currency:          currency,
		Subtotal:          subtotal,
		ShippingCost:      shipping,
		Total:             roundMoney(subtotal + shipping),
		ShippingName:      strings.TrimSpace(req.ShippingName),
		ShippingPhone:     strings.TrimSpace(req.ShippingPhone),
		ShippingAddress:   strings.TrimSpace(req.ShippingAddress),
		ShippingCity:      strings.TrimSpace(req.ShippingCity),
		ShippingState:     strings.TrimSpace(req.ShippingState),
		ShippingPincode:   strings.TrimSpace(req.ShippingPincode),
		DestinationLat:    destLat,
		DestinationLng:    destLng,
		EstimatedDelivery: &eta,
		Notes:             strings.TrimSpace(req.Notes),
		Items:             items,
	}
	originLat, originLng := geocoding.LookupPtr(origin)
	order.Timeline = []models.OrderTimeline{{
		Status:    models.OrderStatusPlaced,
		Location:  origin,
		Latitude:  originLat,
		Longitude: originLng,
		Note:      "Order placed",
		CreatedBy: actorRef(models.RoleCustomer, customerID),
	}}

	for attempt := 1; ; attempt++ {
		order.OrderNumber = newOrderNumber(now)
		err = s.orders.CreateWithStock(ctx, order)
		if !errors.Is(err, repository.ErrDuplicate) || attempt == orderNumberAttempts {
			break
		}
	}
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
		}
		return nil, err
	}

	s.products.Invalidate(ctx, ids...)
	s.publish(ctx, events.SubjectOrderPlaced, order)
	s.log.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"customer_id":  customerID,
		"total":        order.Total,
	}).Info("Order placed")
	return order, nil
}

// originCity is the city of the artisan shipping the first line
func (s *OrderService) originCity(ctx context.Context, artisanID uuid.UUID) string {
	artisan, err := s.users.GetByID(ctx, artisanID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.WithError(err).WithField("artisan_id", artisanID).Warn("Failed to load artisan for origin")
		}
		return ""
	}
	return artisan.City
}

// deliveryDays estimates transit time from the straight-line distance, or a
// flat week when either end is not in the city table
func deliveryDays(originCity, destinationCity string) int {
	from, ok := geocoding.Lookup(originCity)
	if !ok {
		return unknownRouteDays
	}
	to, ok := geocoding.Lookup(destinationCity)
	if !ok {
		return unknownRouteDays
	}
	return baseDeliveryDays + int(math.Ceil(geocoding.DistanceKm(from, to)/kmPerExtraDay))
}

func canView(order *models.Order, viewerID uuid.UUID, role models.Role) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return order.CustomerID == viewerID
	case models.RoleArtisan:
		return order.HasArtisan(viewerID)
	}
	return false
}

func (s *OrderService) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// GetOrder returns an order the viewer is a party to
func (s *OrderService) GetOrder(ctx context.Context, viewerID uuid.UUID, role models.Role, id uuid.UUID) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(order, viewerID, role) {
		return nil, ErrForbidden
	}
	return order, nil
}

// ListOrders scopes the listing to the viewer's role
func (s *OrderService) ListOrders(ctx context.Context, viewerID uuid.UUID, role models.Role, filters models.OrderFilters) ([]models.Order, int64, error) {
	switch role {
	case models.RoleCustomer:
		filters.CustomerID = &viewerID
		filters.ArtisanID = nil
	case models.RoleArtisan:
		filters.ArtisanID = &viewerID
		filters.CustomerID = nil
	case models.RoleAdmin:
	default:
		return nil, 0, ErrForbidden
	}
	return s.orders.List(ctx, filters)
}

// UpdateStatus moves an order forward on behalf of an artisan fulfilling one
// of its lines or an admin. Only an admin may cancel here. A location is geocoded and becomes the parcel's
// current position.
func (s *OrderService) UpdateStatus(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, req models.UpdateOrderStatusRequest) (*models.Order, error) {
	to := models.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !models.IsValidOrderStatus(to) {
		return nil, validationError("unknown order status %q", req.Status)
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && !(role == models.RoleArtisan && order.HasArtisan(actorID)) {
		return nil, ErrForbidden
	}
	// An artisan owns only some lines of the order, so cancelling the whole
	// order is left to admins here and to the customer through Cancel.
	if to == models.OrderStatusCancelled {
		if role != models.RoleAdmin {
			return nil, ErrForbidden
		}
		return s.cancel(ctx, order, actorID, role, req.Note)
	}

	from := order.Status
	if !models.CanTransitionOrderStatus(from, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	// Only an admin may confirm an order that has not been paid online
	if to == models.OrderStatusConfirmed && order.PaymentStatus != models.PaymentStatusPaid && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: order is not paid", ErrInvalidTransition)
	}

	order.Status = to
	entry := &models.OrderTimeline{
		Status:    to,
		Note:      strings.TrimSpace(req.Note),
		CreatedBy: actorRef(role, actorID),
	}
	if city := strings.TrimSpace(req.Location); city != "" {
		lat, lng := geocoding.LookupPtr(city)
		order.CurrentCity, order.CurrentLat, order.CurrentLng = city, lat, lng
		entry.Location, entry.Latitude, entry.Longitude = city, lat, lng
	} else if to == models.OrderStatusDelivered {
		order.CurrentCity, order.CurrentLat, order.CurrentLng = order.ShippingCity, order.DestinationLat, order.DestinationLng
		entry.Location, entry.Latitude, entry.Longitude = order.ShippingCity, order.DestinationLat, order.DestinationLng
	}
	if req.TrackingNumber != "" {
		order.TrackingNumber = strings.TrimSpace(req.TrackingNumber)
	}
	if req.Carrier != "" {
		order.Carrier = strings.TrimSpace(req.Carrier)
	}
	if to == models.OrderStatusDelivered {
		delivered := s.now()
		order.EstimatedDelivery = &delivered
	}
	if req.TrackingNumber != "" || req.Carrier != "" {
		meta, _ := json.Marshal(map[string]string{"trackingNumber": order.TrackingNumber, "carrier": order.Carrier})
		entry.Metadata = datatypes.JSON(meta)
	}

	if err := s.orders.ApplyStatusChange(ctx, order, from, entry); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrConflict
		}
		return nil, err
	}
	order.Timeline = append(order.Timeline, *entry)

	s.publish(ctx, events.SubjectOrderStatusChanged, OrderStatusEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		From:        from,
		To:          to,
		Location:    entry.Location,
		ChangedBy:   entry.CreatedBy,
	})
	s.log.WithFields(logrus.Fields{"order_id": order.ID, "from": from, "to": to, "by": entry.CreatedBy}).Info("Order status updated")
	return order, nil
}

// Cancel lets the customer (or an admin) cancel before the parcel ships.
// Reserved stock goes back to the catalog.
func (s *OrderService) Cancel(ctx context.Context, actorID uuid.UUID, role models.Role, id uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && !(role == models.RoleCustomer && order.CustomerID == actorID) {
		return nil, ErrForbidden
	}
	return s.cancel(ctx, order, actorID, role, reason)
}

func (s *OrderService) cancel(ctx context.Context, order *models.Order, actorID uuid.UUID, role models.Role, reason string) (*models.Order, error) {
	from := order.Status
	if !models.IsCancellable(from) {
		return nil, fmt.Errorf("%w: order in %s cannot be cancelled", ErrInvalidTransition, from)
	}

	note := strings.TrimSpace(reason)
	if note == "" {
		note = "Order cancelled"
	}
	order.Status = models.OrderStatusCancelled
	entry := &models.OrderTimeline{
		Status:    models.OrderStatusCancelled,
		Note:      note,
		CreatedBy: actorRef(role, actorID),
	}
	if err := s.orders.Cancel(ctx, order, from, entry); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, ErrConflict
		}
		return nil, err
	}
	order.Timeline = append(order.Timeline, *entry)

	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	s.products.Invalidate(ctx, ids...)

	s.publish(ctx, events.SubjectOrderCancelled, OrderStatusEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		From:        from,
		To:          models.OrderStatusCancelled,
		ChangedBy:   entry.CreatedBy,
	})
	s.log.WithFields(logrus.Fields{"order_id": order.ID, "from": from, "by": entry.CreatedBy}).Info("Order cancelled")
	return order, nil
}

// Tracking builds the map view of an order: where it left from, where it is
// now and how far it still has to go.
func (s *OrderService) Tracking(ctx context.Context, viewerID uuid.UUID, role models.Role, id uuid.UUID) (*models.TrackingInfo, error) {
	order, err := s.GetOrder(ctx, viewerID, role, id)
	if err != nil {
		return nil, err
	}

	info := &models.TrackingInfo{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		PaymentStatus:     order.PaymentStatus,
		TrackingNumber:    order.TrackingNumber,
		Carrier:           order.Carrier,
		EstimatedDelivery: order.EstimatedDelivery,
		Timeline:          order.Timeline,
		Destination: models.TrackingPoint{
			City:      order.ShippingCity,
			Latitude:  order.DestinationLat,
			Longitude: order.DestinationLng,
		},
	}
	if info.Timeline == nil {
		info.Timeline = []models.OrderTimeline{}
	}

	if len(order.Items) > 0 {
		if city := s.originCity(ctx, order.Items[0].ArtisanID); city != "" {
			lat, lng := geocoding.LookupPtr(city)
			info.Origin = &models.TrackingPoint{City: city, Latitude: lat, Longitude: lng}
		}
	}
	if order.CurrentCity != "" {
		info.Current = &models.TrackingPoint{City: order.CurrentCity, Latitude: order.CurrentLat, Longitude: order.CurrentLng}
	}

	info.RemainingDistanceKm = remainingDistance(order.Status, info)
	return info, nil
}

func remainingDistance(status models.OrderStatus, info *models.TrackingInfo) *float64 {
	switch status {
	case models.OrderStatusCancelled:
		return nil
	case models.OrderStatusDelivered:
		zero := 0.0
		return &zero
	}
	dest := info.Destination
	if dest.Latitude == nil || dest.Longitude == nil {
		return nil
	}

	from := info.Current
	if from == nil || from.Latitude == nil {
		from = info.Origin
	}
	if from == nil || from.Latitude == nil || from.Longitude == nil {
		return nil
	}
	km := math.Round(geocoding.DistanceKm(
		geocoding.Coordinates{Lat: *from.Latitude, Lng: *from.Longitude},
		geocoding.Coordinates{Lat: *dest.Latitude, Lng: *dest.Longitude},
	)*10) / 10
	return &km
}

func (s *OrderService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.publisher.Publish(ctx, subject, data); err != nil {
		s.log.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}
