package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/shared"
)

// StockBatchRepository defines persistence operations for stock batches
type StockBatchRepository interface {
	Save(ctx context.Context, batch *StockBatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*StockBatch, error)
	FindByCode(ctx context.Context, code string) (*StockBatch, error)
	FindByProductID(ctx context.Context, productID uuid.UUID) ([]StockBatch, error)

	// FindDeductibleForUpdate loads the non-depleted, non-expired batches of
	// a product under row locks, ordered FEFO. Must run inside a transaction.
	FindDeductibleForUpdate(ctx context.Context, productID uuid.UUID, at time.Time) ([]StockBatch, error)

	// FindExpiringWithin lists batches with stock left that expire before
	// the cutoff, soonest first.
	FindExpiringWithin(ctx context.Context, cutoff time.Time, filter shared.Filter) ([]StockBatch, error)
}

// AuditEntryRepository defines persistence for the append-only audit log.
// There is deliberately no update or delete.
type AuditEntryRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	FindByProductID(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]AuditEntry, error)
	FindByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]AuditEntry, error)

	// SumDeltasByBatch returns the signed sum of deltas recorded against a
	// batch. Always equals the batch's Remaining.
	SumDeltasByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
}
