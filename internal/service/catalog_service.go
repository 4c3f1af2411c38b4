package service

import (
	"context"
	"fmt"

	"bookstore-service/internal/models"
	"bookstore-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogStore is the slice of the data store the catalog needs.
type CatalogStore interface {
	GetSellerByID(ctx context.Context, id string) (*models.Seller, error)
	GetBookByID(ctx context.Context, id string) (*models.Book, error)
	GetBooksBySeller(ctx context.Context, sellerID string) ([]models.Book, error)
	CreateBook(ctx context.Context, book *models.Book) error
}

// CatalogService manages the book catalog surface the order flow resolves
// against.
type CatalogService struct {
	store  CatalogStore
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CreateListingRequest represents a request to list a book
type CreateListingRequest struct {
	SellerID string `json:"seller_id" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Author   string `json:"author" binding:"required"`
	Price    int64  `json:"price" binding:"required,min=0"`
}

// CreateListing lists a new book for a seller
func (s *CatalogService) CreateListing(ctx context.Context, req *CreateListingRequest) (*models.Book, error) {
	if _, err := s.store.GetSellerByID(ctx, req.SellerID); err != nil {
		return nil, err
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("price must be non-negative: %w", models.ErrInvalidOrder)
	}

	book := &models.Book{
		ID:       uuid.New().String(),
		SellerID: req.SellerID,
		Title:    req.Title,
		Author:   req.Author,
		Price:    req.Price,
	}
	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	s.logger.Info("Book listed",
		zap.String("book_id", book.ID),
		zap.String("seller_id", book.SellerID))
	return book, nil
}

// GetBook retrieves a book by ID
func (s *CatalogService) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	return s.store.GetBookByID(ctx, bookID)
}

// ListSellerBooks retrieves all books listed by a seller
func (s *CatalogService) ListSellerBooks(ctx context.Context, sellerID string) ([]models.Book, error) {
	if _, err := s.store.GetSellerByID(ctx, sellerID); err != nil {
		return nil, err
	}
	return s.store.GetBooksBySeller(ctx, sellerID)
}
