package worker

import (
	"context"
	"log"

	"bookstore-service/internal/broker"
	"bookstore-service/internal/models"
	"bookstore-service/internal/service"
	"bookstore-service/internal/store"
)

// InventoryCacheWorker keeps the Redis inventory snapshots warm. It consumes
// order lifecycle events and rebuilds the affected seller's snapshot after
// every shipment, so storefront availability reads stay close to the
// database without putting Redis on the write path.
type InventoryCacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewInventoryCacheWorker creates a new inventory cache worker
func NewInventoryCacheWorker(
	consumer *broker.Consumer,
	db *store.Store,
	inventory *service.InventoryService,
) *InventoryCacheWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnOrderShipped(func(ctx context.Context, event *models.OrderShippedEvent) error {
		processed, err := db.IsEventProcessed(ctx, event.EventID)
		if err != nil {
			return err
		}
		if processed {
			log.Printf("Event already processed: %s", event.EventID)
			return nil
		}

		if err := inventory.SyncSellerInventory(ctx, event.SellerID); err != nil {
			return err
		}

		return db.MarkEventProcessed(ctx, event.EventID, event.EventType)
	})

	// Cancellation never touches stock (only shipping decrements), so the
	// snapshot is still accurate; just record the event for dedup.
	eventHandler.OnOrderCancelled(func(ctx context.Context, event *models.OrderCancelledEvent) error {
		processed, err := db.IsEventProcessed(ctx, event.EventID)
		if err != nil {
			return err
		}
		if processed {
			return nil
		}
		return db.MarkEventProcessed(ctx, event.EventID, event.EventType)
	})

	return &InventoryCacheWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *InventoryCacheWorker) Start(ctx context.Context) error {
	log.Println("Starting inventory cache worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *InventoryCacheWorker) Stop() error {
	log.Println("Stopping inventory cache worker...")
	return w.consumer.Close()
}
