package store

import (
	"context"
	"database/sql"
	"errors"

	"bookstore-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetBookByID retrieves a book by ID
func (s *Store) GetBookByID(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	err := s.db.GetContext(ctx, &book, "SELECT * FROM books WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.BookNotFoundError{BookID: id}
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBooksByIDs retrieves multiple books by IDs
func (s *Store) GetBooksByIDs(ctx context.Context, ids []string) ([]models.Book, error) {
	if len(ids) == 0 {
		return []models.Book{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM books WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var books []models.Book
	err = s.db.SelectContext(ctx, &books, query, args...)
	return books, err
}

// GetBooksBySeller retrieves all books listed by a seller
func (s *Store) GetBooksBySeller(ctx context.Context, sellerID string) ([]models.Book, error) {
	var books []models.Book
	err := s.db.SelectContext(ctx, &books,
		"SELECT * FROM books WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	return books, err
}

// CreateBook creates a new catalog listing
func (s *Store) CreateBook(ctx context.Context, book *models.Book) error {
	return s.db.GetContext(ctx, &book.CreatedAt, `
		INSERT INTO books (id, seller_id, title, author, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		book.ID, book.SellerID, book.Title, book.Author, book.Price)
}
