package service

import (
	"context"
	"errors"
	"fmt"

	"bookstore-service/internal/models"
	"bookstore-service/internal/redisclient"
	"bookstore-service/internal/util"

	"go.uber.org/zap"
)

// InventoryStore is the slice of the data store the reconciler needs.
type InventoryStore interface {
	GetSellerByID(ctx context.Context, id string) (*models.Seller, error)
	GetInventory(ctx context.Context, sellerID string) ([]models.InventoryEntry, error)
	UpsertInventoryEntry(ctx context.Context, entry *models.InventoryEntry) error
	ShipOrder(ctx context.Context, orderID, sellerID string, items []models.OrderItem) (bool, error)
}

// InventoryService owns seller inventory: storefront reads (cache-aside via
// Redis), seller stock updates, and the ship-time reconciliation that
// decrements stock exactly once per order.
type InventoryService struct {
	store  InventoryStore
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store InventoryStore, cache *redisclient.Client) *InventoryService {
	return &InventoryService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// ReconcileShipment validates stock for every order line and applies the
// decrement together with the order's Pending -> Shipped claim in one
// database transaction. Either the whole shipment applies or nothing does.
func (s *InventoryService) ReconcileShipment(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.ReconcileShipment")
	defer span.End()

	shipped, err := s.store.ShipOrder(ctx, order.ID, order.SellerID, items)
	if err != nil {
		switch {
		case isStockError(err):
			util.ShipmentReconcileFailed.WithLabelValues("insufficient_stock").Inc()
		default:
			util.ShipmentReconcileFailed.WithLabelValues("error").Inc()
		}
		return err
	}
	if !shipped {
		util.ShipmentReconcileFailed.WithLabelValues("lost_race").Inc()
		return fmt.Errorf("order %s is no longer Pending: %w", order.ID, models.ErrInvalidTransition)
	}

	s.refreshCache(ctx, order.SellerID)
	return nil
}

// GetSellerInventory returns the seller's inventory list, preferring the
// Redis snapshot and falling back to the database on a cold or failing
// cache.
func (s *InventoryService) GetSellerInventory(ctx context.Context, sellerID string) ([]models.InventoryEntry, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.GetSellerInventory")
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.GetSellerInventory(ctx, sellerID)
		if err != nil {
			s.logger.Warn("Inventory cache read failed, falling back to DB",
				zap.String("seller_id", sellerID),
				zap.Error(err))
		} else if len(cached) > 0 {
			entries := make([]models.InventoryEntry, 0, len(cached))
			for bookID, count := range cached {
				entries = append(entries, models.InventoryEntry{
					SellerID: sellerID,
					BookID:   bookID,
					Count:    count,
				})
			}
			return entries, nil
		}
	}

	if _, err := s.store.GetSellerByID(ctx, sellerID); err != nil {
		return nil, err
	}

	entries, err := s.store.GetInventory(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetSellerInventory(ctx, sellerID, entries); err != nil {
			s.logger.Warn("Failed to warm inventory cache", zap.Error(err))
		}
	}
	return entries, nil
}

// SetStock sets the count a seller holds for one book
func (s *InventoryService) SetStock(ctx context.Context, sellerID, bookID string, count int) (*models.InventoryEntry, error) {
	if count < 0 {
		return nil, fmt.Errorf("stock count must be non-negative: %w", models.ErrInvalidOrder)
	}

	if _, err := s.store.GetSellerByID(ctx, sellerID); err != nil {
		return nil, err
	}

	entry := &models.InventoryEntry{SellerID: sellerID, BookID: bookID, Count: count}
	if err := s.store.UpsertInventoryEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update inventory: %w", err)
	}

	s.refreshCache(ctx, sellerID)
	return entry, nil
}

// SyncSellerInventory rebuilds the Redis snapshot for a seller from the
// database.
func (s *InventoryService) SyncSellerInventory(ctx context.Context, sellerID string) error {
	if s.cache == nil {
		return nil
	}

	entries, err := s.store.GetInventory(ctx, sellerID)
	if err != nil {
		return fmt.Errorf("failed to read inventory: %w", err)
	}

	if err := s.cache.SetSellerInventory(ctx, sellerID, entries); err != nil {
		return fmt.Errorf("failed to write inventory cache: %w", err)
	}

	s.logger.Info("Inventory cache synced",
		zap.String("seller_id", sellerID),
		zap.Int("entries", len(entries)))
	return nil
}

func (s *InventoryService) refreshCache(ctx context.Context, sellerID string) {
	if s.cache == nil {
		return
	}
	if err := s.SyncSellerInventory(ctx, sellerID); err != nil {
		s.logger.Warn("Failed to refresh inventory cache",
			zap.String("seller_id", sellerID),
			zap.Error(err))
	}
}

func isStockError(err error) bool {
	return errors.Is(err, models.ErrInsufficientStock) || errors.Is(err, models.ErrNotFound)
}
