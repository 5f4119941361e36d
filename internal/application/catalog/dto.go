package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest is the input for creating a product
type CreateProductRequest struct {
	Code             string          `json:"code" binding:"required,max=50"`
	Name             string          `json:"name" binding:"required,max=200"`
	GenericName      string          `json:"generic_name" binding:"omitempty,max=200"`
	Description      string          `json:"description"`
	Barcode          string          `json:"barcode" binding:"omitempty,max=50"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	ReorderThreshold int64           `json:"reorder_threshold" binding:"omitempty,min=0"`
}

// UpdateProductRequest is the input for updating a product
type UpdateProductRequest struct {
	Name             string           `json:"name" binding:"required,max=200"`
	GenericName      string           `json:"generic_name" binding:"omitempty,max=200"`
	Description      string           `json:"description"`
	Barcode          *string          `json:"barcode" binding:"omitempty"`
	UnitPrice        *decimal.Decimal `json:"unit_price"`
	ReorderThreshold *int64           `json:"reorder_threshold"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID               uuid.UUID       `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	GenericName      string          `json:"generic_name,omitempty"`
	Description      string          `json:"description,omitempty"`
	Barcode          string          `json:"barcode,omitempty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	StockOnHand      int64           `json:"stock_on_hand"`
	ReorderThreshold int64           `json:"reorder_threshold"`
	LowStock         bool            `json:"low_stock"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ToProductResponse converts a product to its response form
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:               p.ID,
		Code:             p.Code,
		Name:             p.Name,
		GenericName:      p.GenericName,
		Description:      p.Description,
		Barcode:          p.Barcode,
		UnitPrice:        p.UnitPrice,
		StockOnHand:      p.StockOnHand,
		ReorderThreshold: p.ReorderThreshold,
		LowStock:         p.IsBelowReorderThreshold(),
		Status:           string(p.Status),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, ToProductResponse(&products[i]))
	}
	return out
}
