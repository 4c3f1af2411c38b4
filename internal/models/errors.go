package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the order workflow. Handlers branch on these with
// errors.Is to pick the HTTP status; nothing below is retried internally.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// BookNotFoundError identifies the missing book when resolving order items
// or seller inventory.
type BookNotFoundError struct {
	BookID string
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book %s not found", e.BookID)
}

func (e *BookNotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientStockError names the book whose ordered quantity exceeds the
// seller's inventory count at ship time.
type InsufficientStockError struct {
	BookID    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for book %s: requested=%d, available=%d",
		e.BookID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
