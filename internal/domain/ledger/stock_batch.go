package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/shared"
)

// StockBatch is one physical delivery of a product. Remaining only moves
// through ApplyDelta so the audit log can always explain it; depleted
// batches are kept forever as the anchor of their audit history.
type StockBatch struct {
	shared.BaseEntity
	// Seq is assigned by the database identity column on insert. The batch
	// code is derived from it, which keeps codes unique without a counter
	// table even when two batches arrive in the same second.
	Seq        int64      `gorm:"autoIncrement;uniqueIndex"`
	BatchCode  string     `gorm:"type:varchar(30);uniqueIndex"`
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	Remaining  int64      `gorm:"not null"`
	Original   int64      `gorm:"not null"`
	ExpiryDate *time.Time // nil means the batch never expires
}

// TableName returns the table name for GORM
func (StockBatch) TableName() string {
	return "stock_batches"
}

// NewStockBatch creates a batch with Remaining == Original. Seq and
// BatchCode are filled in by the repository after the insert assigns Seq.
func NewStockBatch(productID uuid.UUID, quantity int64, expiryDate *time.Time) (*StockBatch, error) {
	if quantity <= 0 {
		return nil, shared.ErrInvalidQuantity
	}

	return &StockBatch{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
		Remaining:  quantity,
		Original:   quantity,
		ExpiryDate: expiryDate,
	}, nil
}

// FormatBatchCode derives the human batch code from the creation date and
// the database sequence number.
func FormatBatchCode(createdAt time.Time, seq int64) string {
	return fmt.Sprintf("BT%s-%d", createdAt.Format("060102"), seq)
}

// AssignCode sets the batch code from the already-assigned Seq
func (b *StockBatch) AssignCode() {
	b.BatchCode = FormatBatchCode(b.CreatedAt, b.Seq)
}

// ApplyDelta moves Remaining by a signed amount. A delta that would take
// Remaining below zero means the ledger and the batch rows disagree, so it
// is rejected and the caller must abort its transaction.
func (b *StockBatch) ApplyDelta(delta int64) error {
	if b.Remaining+delta < 0 {
		return shared.ErrInsufficientBatch
	}

	b.Remaining += delta
	b.UpdatedAt = time.Now()
	return nil
}

// IsDepleted returns true when the batch has no units left
func (b *StockBatch) IsDepleted() bool {
	return b.Remaining == 0
}

// IsExpired reports whether the batch has passed its expiry at the given time
func (b *StockBatch) IsExpired(at time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return !b.ExpiryDate.After(at)
}

// WillExpireWithin reports whether the batch expires within the duration
func (b *StockBatch) WillExpireWithin(d time.Duration) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(time.Now().Add(d))
}

// IsDeductible reports whether a sale may draw from this batch
func (b *StockBatch) IsDeductible(at time.Time) bool {
	return b.Remaining > 0 && !b.IsExpired(at)
}
