package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"code":              true,
	"name":              true,
	"generic_name":      true,
	"barcode":           true,
	"unit_price":        true,
	"stock_on_hand":     true,
	"reorder_threshold": true,
	"status":            true,
}

// StockBatchSortFields contains allowed sort fields for stock batches
var StockBatchSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"seq":         true,
	"batch_code":  true,
	"product_id":  true,
	"remaining":   true,
	"original":    true,
	"expiry_date": true,
}

// SaleSortFields contains allowed sort fields for sales
var SaleSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"sale_number":    true,
	"status":         true,
	"total_amount":   true,
	"payable_amount": true,
	"payment_method": true,
	"completed_at":   true,
	"cancelled_at":   true,
}
