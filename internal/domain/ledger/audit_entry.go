package ledger

import (
	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/shared"
)

// Audit reasons written by the transaction engine
const (
	ReasonBatchReceived   = "batch_received"
	ReasonSale            = "sale"
	ReasonSaleReversal    = "sale_reversal"
	ReasonReversalSkipped = "sale_reversal_skipped"
)

// AuditEntry is one append-only row of the stock audit log. Entries are
// never updated or deleted; per batch, the signed sum of deltas always
// equals its Remaining, since the receipt entry records the original
// quantity.
type AuditEntry struct {
	shared.BaseEntity
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	// BatchID is nil for movements that cannot be attributed to a single
	// batch, such as reversal restorations and skip markers.
	BatchID *uuid.UUID `gorm:"type:uuid;index"`
	// Delta is signed: negative for deductions, positive for receipts and
	// restorations, zero for skip markers.
	Delta int64 `gorm:"not null"`
	// BalanceAfter is the batch's Remaining after the change, or the
	// product's StockOnHand when BatchID is nil.
	BalanceAfter int64      `gorm:"not null"`
	Reason       string     `gorm:"type:varchar(50);not null"`
	ActorID      *uuid.UUID `gorm:"type:uuid;index"`
	// CorrelationID groups the entries of one sale or reversal
	CorrelationID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// NewAuditEntry creates an audit entry for a product-level movement
func NewAuditEntry(productID uuid.UUID, delta, balanceAfter int64, reason string) *AuditEntry {
	return &AuditEntry{
		BaseEntity:   shared.NewBaseEntity(),
		ProductID:    productID,
		Delta:        delta,
		BalanceAfter: balanceAfter,
		Reason:       reason,
	}
}

// WithBatch attributes the entry to a batch
func (e *AuditEntry) WithBatch(batchID uuid.UUID) *AuditEntry {
	e.BatchID = &batchID
	return e
}

// WithActor records who triggered the movement
func (e *AuditEntry) WithActor(actorID uuid.UUID) *AuditEntry {
	e.ActorID = &actorID
	return e
}

// WithCorrelation links the entry to the sale or reversal that caused it
func (e *AuditEntry) WithCorrelation(correlationID uuid.UUID) *AuditEntry {
	e.CorrelationID = &correlationID
	return e
}
