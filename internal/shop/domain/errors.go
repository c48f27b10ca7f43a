package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrConflict          = errors.New("conflicting update")
)

var (
	// ErrLineNotFound is returned when a cart has no line with the requested id.
	ErrLineNotFound = fmt.Errorf("cart item %w", ErrNotFound)
	// ErrCartNotActive is returned when mutating a cart that was already checked out or abandoned.
	ErrCartNotActive = fmt.Errorf("cart is not active: %w", ErrConflict)
)

// ValidationError names the offending field so callers can correct the request.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StockError reports the product whose stock cannot cover the requested quantity.
type StockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s", name)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
