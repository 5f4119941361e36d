package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/ledger"
	"github.com/medipos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAuditEntryRepository implements AuditEntryRepository using GORM.
// The audit log is append-only; this repository has no update or delete.
type GormAuditEntryRepository struct {
	db *gorm.DB
}

// NewGormAuditEntryRepository creates a new GormAuditEntryRepository
func NewGormAuditEntryRepository(db *gorm.DB) *GormAuditEntryRepository {
	return &GormAuditEntryRepository{db: db}
}

// Append inserts an audit entry
func (r *GormAuditEntryRepository) Append(ctx context.Context, entry *ledger.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByProductID returns a product's audit trail in chronological order
func (r *GormAuditEntryRepository) FindByProductID(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]ledger.AuditEntry, error) {
	query := r.db.WithContext(ctx).Model(&ledger.AuditEntry{}).
		Where("product_id = ?", productID).
		Order("created_at ASC, id ASC")

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var entries []ledger.AuditEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByCorrelationID returns every entry written by one sale or reversal
func (r *GormAuditEntryRepository) FindByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]ledger.AuditEntry, error) {
	var entries []ledger.AuditEntry
	if err := r.db.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SumDeltasByBatch returns the signed sum of deltas recorded against a batch.
// For a consistent ledger this always equals the batch's Remaining.
func (r *GormAuditEntryRepository) SumDeltasByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).Model(&ledger.AuditEntry{}).
		Where("batch_id = ?", batchID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

// Ensure GormAuditEntryRepository implements AuditEntryRepository
var _ ledger.AuditEntryRepository = (*GormAuditEntryRepository)(nil)
