package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookstore-service/internal/models"
)

// GetBuyerByID retrieves a buyer account
func (s *Store) GetBuyerByID(ctx context.Context, id string) (*models.Buyer, error) {
	var buyer models.Buyer
	err := s.db.GetContext(ctx, &buyer, "SELECT * FROM buyers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("buyer %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &buyer, nil
}

// CreateBuyer creates a buyer account
func (s *Store) CreateBuyer(ctx context.Context, buyer *models.Buyer) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO buyers (id, name, email, shipping_address) VALUES ($1, $2, $3, $4)",
		buyer.ID, buyer.Name, buyer.Email, buyer.ShippingAddress)
	return err
}

// GetCart retrieves all cart items for a buyer
func (s *Store) GetCart(ctx context.Context, buyerID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM cart_items WHERE buyer_id = $1 ORDER BY book_id", buyerID)
	return items, err
}

// UpsertCartItem adds a book to the buyer's cart, or replaces its quantity
// if it is already there.
func (s *Store) UpsertCartItem(ctx context.Context, item *models.CartItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_items (buyer_id, book_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (buyer_id, book_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		item.BuyerID, item.BookID, item.Quantity)
	return err
}

// RemoveCartItem removes one book from the buyer's cart
func (s *Store) RemoveCartItem(ctx context.Context, buyerID, bookID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE buyer_id = $1 AND book_id = $2", buyerID, bookID)
	return err
}

// GetSellerByID retrieves a seller account
func (s *Store) GetSellerByID(ctx context.Context, id string) (*models.Seller, error) {
	var seller models.Seller
	err := s.db.GetContext(ctx, &seller, "SELECT * FROM sellers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("seller %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

// CreateSeller creates a seller account
func (s *Store) CreateSeller(ctx context.Context, seller *models.Seller) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sellers (id, name, company_name) VALUES ($1, $2, $3)",
		seller.ID, seller.Name, seller.CompanyName)
	return err
}

// GetInventory retrieves a seller's full inventory list
func (s *Store) GetInventory(ctx context.Context, sellerID string) ([]models.InventoryEntry, error) {
	var entries []models.InventoryEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM inventory WHERE seller_id = $1 ORDER BY book_id", sellerID)
	return entries, err
}

// GetInventoryEntry retrieves one seller inventory entry
func (s *Store) GetInventoryEntry(ctx context.Context, sellerID, bookID string) (*models.InventoryEntry, error) {
	var entry models.InventoryEntry
	err := s.db.GetContext(ctx, &entry,
		"SELECT * FROM inventory WHERE seller_id = $1 AND book_id = $2", sellerID, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("inventory entry for book %s: %w", bookID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpsertInventoryEntry sets the stock count a seller holds for a book
func (s *Store) UpsertInventoryEntry(ctx context.Context, entry *models.InventoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (seller_id, book_id, count)
		VALUES ($1, $2, $3)
		ON CONFLICT (seller_id, book_id) DO UPDATE SET count = EXCLUDED.count, updated_at = NOW()`,
		entry.SellerID, entry.BookID, entry.Count)
	return err
}
