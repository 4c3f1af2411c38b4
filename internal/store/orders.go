package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore-service/internal/models"
)

// CreateOrderTx persists an order, its items and the buyer's cart clear in a
// single transaction, so a store failure never leaves a partial order or a
// half-emptied cart behind.
func (s *Store) CreateOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, buyer_id, seller_id, total_amount, status, shipping_address, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING created_at, updated_at`

	if err := tx.QueryRowxContext(ctx, query,
		order.ID, order.BuyerID, order.SellerID, order.TotalAmount,
		order.Status, order.ShippingAddress, order.IdempotencyKey,
	).Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO order_items (order_id, book_id, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			items[i].OrderID, items[i].BookID, items[i].Quantity,
			items[i].UnitPrice, items[i].LineTotal,
		).Scan(&items[i].ID); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cart_items WHERE buyer_id = $1", order.BuyerID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetOrdersByBuyerID retrieves orders placed by a buyer
func (s *Store) GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC", buyerID)
	return orders, err
}

// GetOrdersBySellerID retrieves orders fulfilled by a seller
func (s *Store) GetOrdersBySellerID(ctx context.Context, sellerID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	return orders, err
}

// ShipOrder claims the Pending -> Shipped transition and decrements the
// seller's inventory for every order line in one transaction. The claim is a
// conditional update on the order row, so of two concurrent ship requests
// exactly one matches; the loser gets (false, nil) and no decrement. Every
// inventory row is locked and validated before any decrement runs; a missing
// or short entry rolls the whole transaction back, leaving the order Pending.
func (s *Store) ShipOrder(ctx context.Context, orderID, sellerID string, items []models.OrderItem) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.OrderStatusShipped, orderID, models.OrderStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	for _, item := range items {
		var count int
		err := tx.GetContext(ctx, &count,
			"SELECT count FROM inventory WHERE seller_id = $1 AND book_id = $2 FOR UPDATE",
			sellerID, item.BookID)
		if errors.Is(err, sql.ErrNoRows) {
			return false, &models.BookNotFoundError{BookID: item.BookID}
		}
		if err != nil {
			return false, fmt.Errorf("failed to lock inventory: %w", err)
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
		if _, err := tx.ExecContext(ctx,
			"UPDATE inventory SET count = count - $1, updated_at = NOW() WHERE seller_id = $2 AND book_id = $3",
			item.Quantity, sellerID, item.BookID); err != nil {
			return false, fmt.Errorf("failed to decrement inventory: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// TransitionOrderStatus flips the order status in a single conditional
// update. The WHERE clause guards on the expected current status, so of two
// concurrent requests for the same edge exactly one matches a row; the other
// returns false and surfaces as an invalid transition.
func (s *Store) TransitionOrderStatus(ctx context.Context, orderID, from, to string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		to, orderID, from)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
