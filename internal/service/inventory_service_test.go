package service

import (
	"context"
	"testing"

	"bookstore-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStockValidation(t *testing.T) {
	store := newFakeStore()
	store.addSeller("seller-1")
	svc := NewInventoryService(store, nil)
	ctx := context.Background()

	_, err := svc.SetStock(ctx, "seller-1", "book-a", -1)
	assert.ErrorIs(t, err, models.ErrInvalidOrder)

	_, err = svc.SetStock(ctx, "missing-seller", "book-a", 5)
	assert.ErrorIs(t, err, models.ErrNotFound)

	entry, err := svc.SetStock(ctx, "seller-1", "book-a", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Count)
	assert.Equal(t, 5, store.stock("seller-1", "book-a"))

	// Zero is a valid count, it means sold out.
	entry, err = svc.SetStock(ctx, "seller-1", "book-a", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Count)
}

func TestGetSellerInventoryFallsBackToStore(t *testing.T) {
	store := newFakeStore()
	store.addSeller("seller-1")
	store.setStock("seller-1", "book-a", 3)
	store.setStock("seller-1", "book-b", 0)
	svc := NewInventoryService(store, nil)

	entries, err := svc.GetSellerInventory(context.Background(), "seller-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = svc.GetSellerInventory(context.Background(), "missing-seller")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReconcileShipmentLostRace(t *testing.T) {
	store := newFakeStore()
	store.addSeller("seller-1")
	store.setStock("seller-1", "book-a", 5)
	svc := NewInventoryService(store, nil)

	order := &models.Order{ID: "order-1", SellerID: "seller-1", Status: models.OrderStatusShipped}
	store.orders[order.ID] = order

	err := svc.ReconcileShipment(context.Background(), order, []models.OrderItem{
		{BookID: "book-a", Quantity: 2},
	})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Equal(t, 5, store.stock("seller-1", "book-a"))
}
