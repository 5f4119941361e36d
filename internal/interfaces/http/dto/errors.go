package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the actor lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes for the stock ledger
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInsufficientStock is used when batches cannot cover a sale line
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeTooOldToReverse is used when a sale is outside its reversal window
	ErrCodeTooOldToReverse = "ERR_TOO_OLD_TO_REVERSE"
	// ErrCodeAlreadyCancelled is used when reversing an already cancelled sale
	ErrCodeAlreadyCancelled = "ERR_ALREADY_CANCELLED"
	// ErrCodeDuplicateRequest is used when an idempotency key was already seen
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
	// ErrCodeLedgerInconsistent is used when a batch delta would go negative;
	// the allocator pre-check should make this unreachable
	ErrCodeLedgerInconsistent = "ERR_LEDGER_INCONSISTENT"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors
	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:  http.StatusUnprocessableEntity,
	ErrCodeTooOldToReverse:    http.StatusUnprocessableEntity,
	ErrCodeAlreadyCancelled:   http.StatusConflict,
	ErrCodeDuplicateRequest:   http.StatusConflict,
	ErrCodeLedgerInconsistent: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the HTTP-facing codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                   ErrCodeNotFound,
	"ALREADY_EXISTS":              ErrCodeAlreadyExists,
	"INVALID_INPUT":               ErrCodeInvalidInput,
	"INVALID_STATE":               ErrCodeInvalidState,
	"UNAUTHORIZED":                ErrCodeUnauthorized,
	"CONCURRENCY_CONFLICT":        ErrCodeConcurrencyConflict,
	"PRODUCT_NOT_FOUND":           ErrCodeNotFound,
	"INVALID_LINE_ITEM":           ErrCodeInvalidInput,
	"INVALID_QUANTITY":            ErrCodeInvalidInput,
	"INSUFFICIENT_STOCK":          ErrCodeInsufficientStock,
	"TOO_OLD_TO_REVERSE":          ErrCodeTooOldToReverse,
	"ALREADY_CANCELLED":           ErrCodeAlreadyCancelled,
	"DUPLICATE_REQUEST":           ErrCodeDuplicateRequest,
	"INSUFFICIENT_BATCH_QUANTITY": ErrCodeLedgerInconsistent,
}

// NormalizeErrorCode converts a domain error code to the HTTP-facing format.
// If the code is already in that format or unknown, returns it as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
