package service

import (
	"context"
	"errors"
	"testing"

	"bookstore-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderService(store *fakeStore) (*OrderService, *fakePublisher) {
	publisher := &fakePublisher{}
	return NewOrderService(store, publisher), publisher
}

func TestCheckoutComputesTotalServerSide(t *testing.T) {
	store := newFakeStore()
	store.addSeller("seller-1")
	store.addBuyer("buyer-1", "12 Baker Street")
	store.addBook("book-a", "seller-1", 1000)
	store.addBook("book-b", "seller-1", 500)

	svc, publisher := newOrderService(store)

	order, items, err := svc.Checkout(context.Background(), &CheckoutRequest{
		BuyerID: "buyer-1",
		Items: []CheckoutItem{
			{BookID: "book-a", Quantity: 2},
			{BookID: "book-b", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2*1000+1*500), order.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "seller-1", order.SellerID)
	assert.Equal(t, "12 Baker Street", order.ShippingAddress)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2000), items[0].LineTotal)
	assert.Equal(t, int64(500), items[1].LineTotal)
	assert.Equal(t, []string{models.EventTypeOrderPlaced}, publisher.published())
}

func TestCheckoutRejectsCrossSellerItems(t *testing.T) {
	store := newFakeStore()
	store.addSeller("seller-1")
	store.addSeller("seller-2")
	store.addBuyer("buyer-1", "addr")
	store.addBook("book-a", "seller-1", 1000)
	store.addBook("book-b", "seller-2", 500)

	svc, _ := newOrderService(store)

	_, _, err := svc.Checkout(context.Background(), &CheckoutRequest{
		BuyerID: "buyer-1",
		Items: []CheckoutItem{
			{BookID: "book-a", Quantity: 1},
			{BookID: "book-b", Quantity: 1},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidOrder)
	assert.Empty(t, store.orders, "no order may be created")
}

func TestCheckoutMissingBuyer(t *testing.T) {
	store := newFakeStore()
	svc, _ := newOrderService(store)

	_, _, err := svc.Checkout(context.Background(), &CheckoutRequest{
		BuyerID: "ghost",
		Items:   []CheckoutItem{{BookID: "book-a", Quantity: 1}},
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCheckoutMissingBookNamesIt(t *testing.T) {
	store := newFakeStore()
	store.addBuyer("buyer-1", "addr")

	svc, _ := newOrderService(store)

	_, _, err := svc.Checkout(context.Background(), &CheckoutRequest{
		BuyerID: "buyer-1",
		Items:   []CheckoutItem{{BookID: "book-x", Quantity: 1}},
	})
	require.Error(t, err)

	var notFound *models.BookNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "book-x", notFound.BookID)
}

func TestCheckoutClearsCartOnSuccessOnly(t *testing.T) {
	store := newFakeStore()
	store.addSeller("seller-1")
	store.addBuyer("buyer-1", "addr")
	store.addBook("book-a", "seller-1", 1000)
	store.carts["buyer-1"] = []models.CartItem{{BuyerID: "buyer-1", BookID: "book-a", Quantity: 2}}

	svc, _ := newOrderService(store)
	ctx := context.Background()

	// Failed checkout leaves the cart alone.
	store.createOrderErr = errors.New("db down")
	_, _, err := svc.Checkout(ctx, &CheckoutRequest{
		BuyerID: "buyer-1",
		Items:   []CheckoutItem{{BookID: "book-a", Quantity: 2}},
	})
	require.Error(t, err)
	cart, _ := store.GetCart(ctx, "buyer-1")
	assert.Len(t, cart, 1, "cart must be unchanged after a failed checkout")

	// Successful checkout empties it.
	store.createOrderErr = nil
	_, _, err = svc.Checkout(ctx, &CheckoutRequest{
		BuyerID: "buyer-1",
		Items:   []CheckoutItem{{BookID: "book-a", Quantity: 2}},
	})
	require.NoError(t, err)
	cart, _ = store.GetCart(ctx, "buyer-1")
	assert.Empty(t, cart)
}

func TestCheckoutFromCart(t *testing.T) {
	store := newFakeStore()
	store.addSeller("seller-1")
	store.addBuyer("buyer-1", "addr")
	store.addBook("book-a", "seller-1", 1000)
	store.carts["buyer-1"] = []models.CartItem{{BuyerID: "buyer-1", BookID: "book-a", Quantity: 2}}

	svc, _ := newOrderService(store)

	order, items, err := svc.CheckoutFromCart(context.Background(), "buyer-1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), order.TotalAmount)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	cart, _ := store.GetCart(context.Background(), "buyer-1")
	assert.Empty(t, cart)
}

func TestCheckoutFromEmptyCart(t *testing.T) {
	store := newFakeStore()
	store.addBuyer("buyer-1", "addr")

	svc, _ := newOrderService(store)

	_, _, err := svc.CheckoutFromCart(context.Background(), "buyer-1", "")
	assert.ErrorIs(t, err, models.ErrInvalidOrder)
}

func TestCheckoutIdempotencyKeyReturnsExistingOrder(t *testing.T) {
	store := newFakeStore()
	store.addSeller("seller-1")
	store.addBuyer("buyer-1", "addr")
	store.addBook("book-a", "seller-1", 1000)

	svc, _ := newOrderService(store)
	ctx := context.Background()

	req := &CheckoutRequest{
		BuyerID:        "buyer-1",
		Items:          []CheckoutItem{{BookID: "book-a", Quantity: 1}},
		IdempotencyKey: "key-1",
	}

	first, _, err := svc.Checkout(ctx, req)
	require.NoError(t, err)

	second, _, err := svc.Checkout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.orders, 1)
}

func TestCheckoutRejectsMalformedItems(t *testing.T) {
	store := newFakeStore()
	store.addSeller("seller-1")
	store.addBuyer("buyer-1", "addr")
	store.addBook("book-a", "seller-1", 1000)

	svc, _ := newOrderService(store)
	ctx := context.Background()

	tests := map[string][]CheckoutItem{
		"no items":      {},
		"zero quantity": {{BookID: "book-a", Quantity: 0}},
		"empty book id": {{BookID: "", Quantity: 1}},
	}

	for name, items := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.Checkout(ctx, &CheckoutRequest{BuyerID: "buyer-1", Items: items})
			assert.ErrorIs(t, err, models.ErrInvalidOrder)
		})
	}
}

func TestAddToCartValidatesBook(t *testing.T) {
	store := newFakeStore()
	store.addSeller("seller-1")
	store.addBuyer("buyer-1", "addr")
	store.addBook("book-a", "seller-1", 1000)

	svc, _ := newOrderService(store)
	ctx := context.Background()

	require.NoError(t, svc.AddToCart(ctx, "buyer-1", "book-a", 3))

	cart, err := svc.GetCart(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, 3, cart[0].Quantity)

	err = svc.AddToCart(ctx, "buyer-1", "missing-book", 1)
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = svc.AddToCart(ctx, "buyer-1", "book-a", 0)
	assert.ErrorIs(t, err, models.ErrInvalidOrder)
}
