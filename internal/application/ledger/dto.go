package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/ledger"
)

// CreateBatchRequest is the restock entry point input
type CreateBatchRequest struct {
	ProductID  string     `json:"product_id" binding:"required,uuid"`
	Quantity   int64      `json:"quantity" binding:"required"`
	ExpiryDate *time.Time `json:"expiry_date"`
	ActorID    *uuid.UUID `json:"-"`
}

// BatchResponse represents a stock batch in API responses
type BatchResponse struct {
	ID         uuid.UUID  `json:"id"`
	BatchCode  string     `json:"batch_code"`
	ProductID  uuid.UUID  `json:"product_id"`
	Remaining  int64      `json:"remaining"`
	Original   int64      `json:"original"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Depleted   bool       `json:"depleted"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToBatchResponse converts a stock batch to its response form
func ToBatchResponse(b *ledger.StockBatch) BatchResponse {
	return BatchResponse{
		ID:         b.ID,
		BatchCode:  b.BatchCode,
		ProductID:  b.ProductID,
		Remaining:  b.Remaining,
		Original:   b.Original,
		ExpiryDate: b.ExpiryDate,
		Depleted:   b.IsDepleted(),
		CreatedAt:  b.CreatedAt,
	}
}

// AuditEntryResponse represents an audit log row in API responses
type AuditEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	ProductID     uuid.UUID  `json:"product_id"`
	BatchID       *uuid.UUID `json:"batch_id,omitempty"`
	Delta         int64      `json:"delta"`
	BalanceAfter  int64      `json:"balance_after"`
	Reason        string     `json:"reason"`
	ActorID       *uuid.UUID `json:"actor_id,omitempty"`
	CorrelationID *uuid.UUID `json:"correlation_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ToAuditEntryResponse converts an audit entry to its response form
func ToAuditEntryResponse(e *ledger.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:            e.ID,
		ProductID:     e.ProductID,
		BatchID:       e.BatchID,
		Delta:         e.Delta,
		BalanceAfter:  e.BalanceAfter,
		Reason:        e.Reason,
		ActorID:       e.ActorID,
		CorrelationID: e.CorrelationID,
		CreatedAt:     e.CreatedAt,
	}
}

// ToAuditEntryResponses converts a slice of audit entries
func ToAuditEntryResponses(entries []ledger.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, ToAuditEntryResponse(&entries[i]))
	}
	return out
}

// ToBatchResponses converts a slice of stock batches
func ToBatchResponses(batches []ledger.StockBatch) []BatchResponse {
	out := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		out = append(out, ToBatchResponse(&batches[i]))
	}
	return out
}
