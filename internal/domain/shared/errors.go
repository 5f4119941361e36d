package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Stock ledger domain errors
var (
	ErrProductNotFound  = NewDomainError("PRODUCT_NOT_FOUND", "Product does not exist")
	ErrInvalidLineItem  = NewDomainError("INVALID_LINE_ITEM", "Sale line item is invalid")
	ErrInvalidQuantity  = NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	ErrTooOldToReverse  = NewDomainError("TOO_OLD_TO_REVERSE", "Sale is outside the reversal window")
	ErrAlreadyCancelled = NewDomainError("ALREADY_CANCELLED", "Sale has already been cancelled")
	ErrDuplicateRequest = NewDomainError("DUPLICATE_REQUEST", "Request with this idempotency key was already processed")
)

// InsufficientStockError is returned when a sale requests more units than
// the non-depleted batches of a product can cover. It carries the numbers
// the point of sale needs to show the cashier.
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}

// DomainError converts to the coded form used by the HTTP layer
func (e *InsufficientStockError) DomainError() *DomainError {
	return NewDomainError("INSUFFICIENT_STOCK", e.Error())
}

// NewInsufficientStockError creates an insufficient stock error
func NewInsufficientStockError(productID string, available, requested int64) *InsufficientStockError {
	return &InsufficientStockError{
		ProductID: productID,
		Available: available,
		Requested: requested,
	}
}

// ErrInsufficientBatch signals that a batch delta would drive Remaining
// below zero. The allocator pre-check makes this unreachable in normal
// operation; hitting it means the ledger and the batch rows disagree, so
// the surrounding transaction must abort.
var ErrInsufficientBatch = NewDomainError("INSUFFICIENT_BATCH_QUANTITY", "Batch quantity would become negative")
