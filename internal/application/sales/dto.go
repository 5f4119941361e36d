package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// SaleLineRequest is one requested line of a sale
type SaleLineRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required"`
}

// CommitSaleRequest is the input of the sale commit transaction
type CommitSaleRequest struct {
	Items         []SaleLineRequest `json:"items" binding:"required,min=1,dive"`
	PaymentMethod string            `json:"payment_method" binding:"omitempty,oneof=cash card transfer"`
	CustomerRef   string            `json:"customer_ref" binding:"omitempty,max=100"`
	Discount      decimal.Decimal   `json:"discount"`
	// IdempotencyKey lets a POS terminal retry the request safely
	IdempotencyKey string     `json:"idempotency_key" binding:"omitempty,max=100"`
	ActorID        *uuid.UUID `json:"-"`
}

// ReverseSaleRequest is the input of the sale reversal transaction
type ReverseSaleRequest struct {
	Reason  string     `json:"reason" binding:"required,max=200"`
	ActorID *uuid.UUID `json:"-"`
}

// ReversalResult reports what a reversal actually restored. A reversal can
// succeed while skipping products that no longer exist; the skips are
// surfaced here instead of failing the refund.
type ReversalResult struct {
	SaleID            uuid.UUID   `json:"sale_id"`
	RestoredProducts  int         `json:"restored_products"`
	RestoredUnits     int64       `json:"restored_units"`
	SkippedProductIDs []uuid.UUID `json:"skipped_product_ids,omitempty"`
}

// SaleItemResponse represents a sale line in API responses
type SaleItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID            uuid.UUID          `json:"id"`
	SaleNumber    string             `json:"sale_number"`
	Status        string             `json:"status"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Discount      decimal.Decimal    `json:"discount"`
	PayableAmount decimal.Decimal    `json:"payable_amount"`
	PaymentMethod string             `json:"payment_method"`
	CustomerRef   string             `json:"customer_ref,omitempty"`
	Items         []SaleItemResponse `json:"items"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason  string             `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ToSaleResponse converts a sale to its response form
func ToSaleResponse(sale *sales.Sale) SaleResponse {
	items := make([]SaleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, SaleItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}

	return SaleResponse{
		ID:            sale.ID,
		SaleNumber:    sale.SaleNumber,
		Status:        sale.Status.String(),
		TotalAmount:   sale.TotalAmount,
		Discount:      sale.Discount,
		PayableAmount: sale.PayableAmount,
		PaymentMethod: sale.PaymentMethod,
		CustomerRef:   sale.CustomerRef,
		Items:         items,
		CompletedAt:   sale.CompletedAt,
		CancelledAt:   sale.CancelledAt,
		CancelReason:  sale.CancelReason,
		CreatedAt:     sale.CreatedAt,
	}
}

// ToSaleResponses converts a slice of sales
func ToSaleResponses(list []sales.Sale) []SaleResponse {
	out := make([]SaleResponse, 0, len(list))
	for i := range list {
		out = append(out, ToSaleResponse(&list[i]))
	}
	return out
}
