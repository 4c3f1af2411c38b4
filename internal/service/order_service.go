package service

import (
	"context"
	"fmt"
	"time"

	"bookstore-service/internal/models"
	"bookstore-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutStore is the slice of the data store the order ledger needs.
// *store.Store satisfies it; tests substitute an in-memory fake.
type CheckoutStore interface {
	GetBuyerByID(ctx context.Context, id string) (*models.Buyer, error)
	GetCart(ctx context.Context, buyerID string) ([]models.CartItem, error)
	GetBookByID(ctx context.Context, id string) (*models.Book, error)
	GetBooksByIDs(ctx context.Context, ids []string) ([]models.Book, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	CreateOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error)
	GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]models.Order, error)
	GetOrdersBySellerID(ctx context.Context, sellerID string) ([]models.Order, error)
	UpsertCartItem(ctx context.Context, item *models.CartItem) error
	RemoveCartItem(ctx context.Context, buyerID, bookID string) error
}

// Publisher emits order lifecycle events. Failures are logged, not surfaced:
// events are a downstream notification, not part of the transaction.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderShipped(ctx context.Context, event *models.OrderShippedEvent) error
	PublishOrderDelivered(ctx context.Context, event *models.OrderDeliveredEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// OrderService is the order ledger: it turns a cart or an explicit item list
// into a persisted Pending order with server-computed totals.
type OrderService struct {
	store     CheckoutStore
	publisher Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store CheckoutStore, publisher Publisher) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CheckoutRequest represents a request to place an order
type CheckoutRequest struct {
	// BuyerID comes from the authenticated caller, never the request body.
	BuyerID        string         `json:"-"`
	Items          []CheckoutItem `json:"items" binding:"required,min=1"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// CheckoutItem represents one requested line. Any price the client sends is
// ignored; unit prices always come from the catalog.
type CheckoutItem struct {
	BookID   string `json:"book_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// Checkout creates a Pending order from an explicit item list. The buyer's
// cart is cleared in the same transaction that persists the order.
func (s *OrderService) Checkout(ctx context.Context, req *CheckoutRequest) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	if req.IdempotencyKey != "" {
		existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if existing != nil {
			s.logger.Info("Duplicate checkout request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("order_id", existing.ID))
			items, err := s.store.GetOrderItemsByOrderID(ctx, existing.ID)
			if err != nil {
				return nil, nil, err
			}
			return existing, items, nil
		}
	}

	buyer, err := s.store.GetBuyerByID(ctx, req.BuyerID)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("buyer_not_found").Inc()
		return nil, nil, err
	}

	order, items, err := s.buildOrder(ctx, buyer, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, nil, err
	}
	order.IdempotencyKey = req.IdempotencyKey

	if err := s.store.CreateOrderTx(ctx, order, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersPlacedTotal.Inc()
	util.CartsClearedTotal.Inc()
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("buyer_id", order.BuyerID),
		zap.String("seller_id", order.SellerID),
		zap.Int64("total_amount", order.TotalAmount))

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		SellerID:    order.SellerID,
		TotalAmount: order.TotalAmount,
		Items:       toEventItems(items),
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return order, items, nil
}

// CheckoutFromCart places an order from the buyer's persisted cart. The cart
// is read once; the order is built from that snapshot.
func (s *OrderService) CheckoutFromCart(ctx context.Context, buyerID, idempotencyKey string) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CheckoutFromCart")
	defer span.End()

	cart, err := s.store.GetCart(ctx, buyerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if len(cart) == 0 {
		return nil, nil, fmt.Errorf("cart is empty: %w", models.ErrInvalidOrder)
	}

	items := make([]CheckoutItem, 0, len(cart))
	for _, entry := range cart {
		items = append(items, CheckoutItem{BookID: entry.BookID, Quantity: entry.Quantity})
	}

	return s.Checkout(ctx, &CheckoutRequest{
		BuyerID:        buyerID,
		Items:          items,
		IdempotencyKey: idempotencyKey,
	})
}

// buildOrder resolves every book, enforces the single-seller rule and
// computes the total server-side. No state is written here.
func (s *OrderService) buildOrder(ctx context.Context, buyer *models.Buyer, reqItems []CheckoutItem) (*models.Order, []models.OrderItem, error) {
	if len(reqItems) == 0 {
		return nil, nil, fmt.Errorf("order has no items: %w", models.ErrInvalidOrder)
	}

	ids := make([]string, 0, len(reqItems))
	for _, reqItem := range reqItems {
		if reqItem.BookID == "" || reqItem.Quantity < 1 {
			return nil, nil, fmt.Errorf("malformed line item: %w", models.ErrInvalidOrder)
		}
		ids = append(ids, reqItem.BookID)
	}

	books, err := s.store.GetBooksByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve books: %w", err)
	}
	byID := make(map[string]models.Book, len(books))
	for _, book := range books {
		byID[book.ID] = book
	}

	var sellerID string
	var total int64
	items := make([]models.OrderItem, 0, len(reqItems))

	for _, reqItem := range reqItems {
		book, ok := byID[reqItem.BookID]
		if !ok {
			return nil, nil, &models.BookNotFoundError{BookID: reqItem.BookID}
		}

		if sellerID == "" {
			sellerID = book.SellerID
		} else if sellerID != book.SellerID {
			return nil, nil, fmt.Errorf("items from different sellers: %w", models.ErrInvalidOrder)
		}

		lineTotal := book.Price * int64(reqItem.Quantity)
		total += lineTotal

		items = append(items, models.OrderItem{
			BookID:    book.ID,
			Quantity:  reqItem.Quantity,
			UnitPrice: book.Price,
			LineTotal: lineTotal,
		})
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		BuyerID:         buyer.ID,
		SellerID:        sellerID,
		TotalAmount:     total,
		Status:          models.OrderStatusPending,
		ShippingAddress: buyer.ShippingAddress,
	}

	return order, items, nil
}

// GetOrder retrieves an order and its items
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// ListBuyerOrders retrieves all orders placed by a buyer
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyerID string) ([]models.Order, error) {
	return s.store.GetOrdersByBuyerID(ctx, buyerID)
}

// ListSellerOrders retrieves all orders fulfilled by a seller
func (s *OrderService) ListSellerOrders(ctx context.Context, sellerID string) ([]models.Order, error) {
	return s.store.GetOrdersBySellerID(ctx, sellerID)
}

// GetCart returns the buyer's current cart
func (s *OrderService) GetCart(ctx context.Context, buyerID string) ([]models.CartItem, error) {
	if _, err := s.store.GetBuyerByID(ctx, buyerID); err != nil {
		return nil, err
	}
	return s.store.GetCart(ctx, buyerID)
}

// AddToCart puts a book into the buyer's cart, replacing any existing
// quantity for that book.
func (s *OrderService) AddToCart(ctx context.Context, buyerID, bookID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1: %w", models.ErrInvalidOrder)
	}
	if _, err := s.store.GetBuyerByID(ctx, buyerID); err != nil {
		return err
	}
	if _, err := s.store.GetBookByID(ctx, bookID); err != nil {
		return err
	}
	return s.store.UpsertCartItem(ctx, &models.CartItem{
		BuyerID:  buyerID,
		BookID:   bookID,
		Quantity: quantity,
	})
}

// RemoveFromCart removes one book from the buyer's cart
func (s *OrderService) RemoveFromCart(ctx context.Context, buyerID, bookID string) error {
	if _, err := s.store.GetBuyerByID(ctx, buyerID); err != nil {
		return err
	}
	return s.store.RemoveCartItem(ctx, buyerID, bookID)
}

func toEventItems(items []models.OrderItem) []models.OrderItemData {
	out := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItemData{
			BookID:    item.BookID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return out
}
