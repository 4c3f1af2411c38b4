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

// LifecycleStore is the slice of the data store the lifecycle engine needs.
type LifecycleStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error)
	TransitionOrderStatus(ctx context.Context, orderID, from, to string) (bool, error)
}

// ShipmentReconciler validates and applies the inventory decrement for a
// ship transition. The implementation owns the Pending -> Shipped claim, so
// a successful call means the order is Shipped and stock is decremented,
// both exactly once.
type ShipmentReconciler interface {
	ReconcileShipment(ctx context.Context, order *models.Order, items []models.OrderItem) error
}

// LifecycleService validates and executes order status transitions. The
// state machine is forward-only: Pending -> Shipped -> Delivered, with
// Pending -> Cancelled as the only other edge.
type LifecycleService struct {
	store      LifecycleStore
	reconciler ShipmentReconciler
	publisher  Publisher
	logger     *zap.Logger
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(store LifecycleStore, reconciler ShipmentReconciler, publisher Publisher) *LifecycleService {
	return &LifecycleService{
		store:      store,
		reconciler: reconciler,
		publisher:  publisher,
		logger:     util.GetLogger(),
	}
}

// Transition moves an order to target on behalf of the caller. Sellers may
// drive any transition on their own orders; buyers may only cancel their
// own orders. The status write is conditional on the current status, so a
// concurrent request for the same edge loses cleanly.
func (s *LifecycleService) Transition(ctx context.Context, orderID, callerID, callerRole, target string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "LifecycleService.Transition")
	defer span.End()

	if !models.ValidStatus(target) {
		return nil, fmt.Errorf("unknown status %q: %w", target, models.ErrInvalidOrder)
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(order, callerID, callerRole, target); err != nil {
		util.TransitionsRejectedTotal.WithLabelValues("forbidden").Inc()
		return nil, err
	}

	if !models.CanTransition(order.Status, target) {
		util.TransitionsRejectedTotal.WithLabelValues("invalid_edge").Inc()
		return nil, fmt.Errorf("cannot transition order %s from %s to %s: %w",
			order.ID, order.Status, target, models.ErrInvalidTransition)
	}

	switch target {
	case models.OrderStatusShipped:
		if err := s.ship(ctx, order); err != nil {
			return nil, err
		}
	default:
		ok, err := s.store.TransitionOrderStatus(ctx, order.ID, order.Status, target)
		if err != nil {
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}
		if !ok {
			// Lost a race: someone else moved the order first.
			util.TransitionsRejectedTotal.WithLabelValues("lost_race").Inc()
			return nil, fmt.Errorf("order %s is no longer %s: %w",
				order.ID, order.Status, models.ErrInvalidTransition)
		}
	}

	order.Status = target
	s.logger.Info("Order status changed",
		zap.String("order_id", order.ID),
		zap.String("status", target),
		zap.String("requested_by", callerID))

	s.publishTransition(ctx, order, callerID)
	return order, nil
}

// Cancel cancels a Pending order on behalf of its buyer or seller.
// Inventory is never touched: stock is only decremented at ship time, so a
// Pending order has nothing to restore.
func (s *LifecycleService) Cancel(ctx context.Context, orderID, callerID, callerRole string) (*models.Order, error) {
	return s.Transition(ctx, orderID, callerID, callerRole, models.OrderStatusCancelled)
}

// authorize enforces the ownership rules. Cancellation is open to the
// order's buyer as well as its seller; every other transition is
// seller-only. The checks never reveal more than forbidden/not-found.
func (s *LifecycleService) authorize(order *models.Order, callerID, callerRole, target string) error {
	switch callerRole {
	case models.RoleSeller:
		if order.SellerID != callerID {
			return fmt.Errorf("order %s is not fulfilled by caller: %w", order.ID, models.ErrForbidden)
		}
	case models.RoleBuyer:
		if target != models.OrderStatusCancelled {
			return fmt.Errorf("buyers may only cancel orders: %w", models.ErrForbidden)
		}
		if order.BuyerID != callerID {
			return fmt.Errorf("order %s was not placed by caller: %w", order.ID, models.ErrForbidden)
		}
	default:
		return fmt.Errorf("unknown caller role %q: %w", callerRole, models.ErrForbidden)
	}
	return nil
}

func (s *LifecycleService) ship(ctx context.Context, order *models.Order) error {
	items, err := s.store.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	start := time.Now()
	err = s.reconciler.ReconcileShipment(ctx, order, items)
	util.ShipmentReconcileLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	util.OrdersShippedTotal.Inc()
	return nil
}

func (s *LifecycleService) publishTransition(ctx context.Context, order *models.Order, callerID string) {
	base := models.BaseEvent{
		EventID:   uuid.New().String(),
		Timestamp: time.Now(),
	}

	var err error
	switch order.Status {
	case models.OrderStatusShipped:
		base.EventType = models.EventTypeOrderShipped
		items, itemsErr := s.store.GetOrderItemsByOrderID(ctx, order.ID)
		if itemsErr != nil {
			s.logger.Error("Failed to load items for shipped event", zap.Error(itemsErr))
		}
		err = s.publisher.PublishOrderShipped(ctx, &models.OrderShippedEvent{
			BaseEvent: base,
			OrderID:   order.ID,
			SellerID:  order.SellerID,
			Items:     toEventItems(items),
		})
	case models.OrderStatusDelivered:
		util.OrdersDeliveredTotal.Inc()
		base.EventType = models.EventTypeOrderDelivered
		err = s.publisher.PublishOrderDelivered(ctx, &models.OrderDeliveredEvent{
			BaseEvent: base,
			OrderID:   order.ID,
			BuyerID:   order.BuyerID,
		})
	case models.OrderStatusCancelled:
		util.OrdersCancelledTotal.Inc()
		base.EventType = models.EventTypeOrderCancelled
		err = s.publisher.PublishOrderCancelled(ctx, &models.OrderCancelledEvent{
			BaseEvent:   base,
			OrderID:     order.ID,
			CancelledBy: callerID,
		})
	}

	if err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("order_id", order.ID),
			zap.String("status", order.Status),
			zap.Error(err))
	}
}
