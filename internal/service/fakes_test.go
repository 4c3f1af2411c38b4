package service

import (
	"context"
	"fmt"
	"sync"

	"bookstore-service/internal/models"
)

// fakeStore is an in-memory stand-in for *store.Store covering every store
// interface the services consume.
type fakeStore struct {
	mu sync.Mutex

	buyers     map[string]*models.Buyer
	sellers    map[string]*models.Seller
	books      map[string]*models.Book
	carts      map[string][]models.CartItem
	inventory  map[string]map[string]int // sellerID -> bookID -> count
	orders     map[string]*models.Order
	orderItems map[string][]models.OrderItem

	createOrderErr error
	nextItemID     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		buyers:     make(map[string]*models.Buyer),
		sellers:    make(map[string]*models.Seller),
		books:      make(map[string]*models.Book),
		carts:      make(map[string][]models.CartItem),
		inventory:  make(map[string]map[string]int),
		orders:     make(map[string]*models.Order),
		orderItems: make(map[string][]models.OrderItem),
	}
}

func (f *fakeStore) addBuyer(id, address string) {
	f.buyers[id] = &models.Buyer{ID: id, Name: "buyer " + id, ShippingAddress: address}
}

func (f *fakeStore) addSeller(id string) {
	f.sellers[id] = &models.Seller{ID: id, Name: "seller " + id}
	if f.inventory[id] == nil {
		f.inventory[id] = make(map[string]int)
	}
}

func (f *fakeStore) addBook(id, sellerID string, price int64) {
	f.books[id] = &models.Book{ID: id, SellerID: sellerID, Title: "book " + id, Price: price}
}

func (f *fakeStore) setStock(sellerID, bookID string, count int) {
	if f.inventory[sellerID] == nil {
		f.inventory[sellerID] = make(map[string]int)
	}
	f.inventory[sellerID][bookID] = count
}

func (f *fakeStore) stock(sellerID, bookID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inventory[sellerID][bookID]
}

func (f *fakeStore) GetBuyerByID(ctx context.Context, id string) (*models.Buyer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if buyer, ok := f.buyers[id]; ok {
		return buyer, nil
	}
	return nil, fmt.Errorf("buyer %s: %w", id, models.ErrNotFound)
}

func (f *fakeStore) GetSellerByID(ctx context.Context, id string) (*models.Seller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seller, ok := f.sellers[id]; ok {
		return seller, nil
	}
	return nil, fmt.Errorf("seller %s: %w", id, models.ErrNotFound)
}

func (f *fakeStore) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if book, ok := f.books[id]; ok {
		return book, nil
	}
	return nil, &models.BookNotFoundError{BookID: id}
}

func (f *fakeStore) GetBooksByIDs(ctx context.Context, ids []string) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var books []models.Book
	for _, id := range ids {
		if book, ok := f.books[id]; ok {
			books = append(books, *book)
		}
	}
	return books, nil
}

func (f *fakeStore) GetBooksBySeller(ctx context.Context, sellerID string) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var books []models.Book
	for _, book := range f.books {
		if book.SellerID == sellerID {
			books = append(books, *book)
		}
	}
	return books, nil
}

func (f *fakeStore) CreateBook(ctx context.Context, book *models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *book
	f.books[book.ID] = &copied
	return nil
}

func (f *fakeStore) GetCart(ctx context.Context, buyerID string) ([]models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CartItem(nil), f.carts[buyerID]...), nil
}

func (f *fakeStore) UpsertCartItem(ctx context.Context, item *models.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.carts[item.BuyerID] {
		if existing.BookID == item.BookID {
			f.carts[item.BuyerID][i].Quantity = item.Quantity
			return nil
		}
	}
	f.carts[item.BuyerID] = append(f.carts[item.BuyerID], *item)
	return nil
}

func (f *fakeStore) RemoveCartItem(ctx context.Context, buyerID, bookID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.carts[buyerID]
	for i, item := range items {
		if item.BookID == bookID {
			f.carts[buyerID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.IdempotencyKey == key {
			return order, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createOrderErr != nil {
		return f.createOrderErr
	}

	copied := *order
	f.orders[order.ID] = &copied
	for i := range items {
		f.nextItemID++
		items[i].ID = f.nextItemID
		items[i].OrderID = order.ID
	}
	f.orderItems[order.ID] = append([]models.OrderItem(nil), items...)
	delete(f.carts, order.BuyerID)
	return nil
}

func (f *fakeStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[id]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
}

func (f *fakeStore) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderItem(nil), f.orderItems[orderID]...), nil
}

func (f *fakeStore) GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var orders []models.Order
	for _, order := range f.orders {
		if order.BuyerID == buyerID {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}

func (f *fakeStore) GetOrdersBySellerID(ctx context.Context, sellerID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var orders []models.Order
	for _, order := range f.orders {
		if order.SellerID == sellerID {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}

func (f *fakeStore) TransitionOrderStatus(ctx context.Context, orderID, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

// ShipOrder mirrors the store's fused transaction: the conditional Pending
// claim and the all-or-nothing decrement happen under one lock.
func (f *fakeStore) ShipOrder(ctx context.Context, orderID, sellerID string, items []models.OrderItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	if !ok || order.Status != models.OrderStatusPending {
		return false, nil
	}

	stock := f.inventory[sellerID]
	for _, item := range items {
		count, ok := stock[item.BookID]
		if !ok {
			return false, &models.BookNotFoundError{BookID: item.BookID}
		}
		if count < item.Quantity {
			return false, &models.InsufficientStockError{
				BookID:    item.BookID,
				Requested: item.Quantity,
				Available: count,
			}
		}
	}

	for _, item := range items {
		stock[item.BookID] -= item.Quantity
	}
	order.Status = models.OrderStatusShipped
	return true, nil
}

func (f *fakeStore) GetInventory(ctx context.Context, sellerID string) ([]models.InventoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []models.InventoryEntry
	for bookID, count := range f.inventory[sellerID] {
		entries = append(entries, models.InventoryEntry{
			SellerID: sellerID,
			BookID:   bookID,
			Count:    count,
		})
	}
	return entries, nil
}

func (f *fakeStore) UpsertInventoryEntry(ctx context.Context, entry *models.InventoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inventory[entry.SellerID] == nil {
		f.inventory[entry.SellerID] = make(map[string]int)
	}
	f.inventory[entry.SellerID][entry.BookID] = entry.Count
	return nil
}

// fakePublisher records published events
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePublisher) record(eventType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *fakePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *fakePublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	p.record(event.EventType)
	return nil
}

func (p *fakePublisher) PublishOrderShipped(ctx context.Context, event *models.OrderShippedEvent) error {
	p.record(event.EventType)
	return nil
}

func (p *fakePublisher) PublishOrderDelivered(ctx context.Context, event *models.OrderDeliveredEvent) error {
	p.record(event.EventType)
	return nil
}

func (p *fakePublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	p.record(event.EventType)
	return nil
}
