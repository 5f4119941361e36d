package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/ledger"
	"github.com/medipos/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fefoOrder sorts batches soonest-expiry first; batches without an expiry
// date go last. Ties break on arrival order.
const fefoOrder = "COALESCE(expiry_date, '9999-12-31') ASC, created_at ASC, seq ASC"

// GormStockBatchRepository implements StockBatchRepository using GORM
type GormStockBatchRepository struct {
	db *gorm.DB
}

// NewGormStockBatchRepository creates a new GormStockBatchRepository
func NewGormStockBatchRepository(db *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: db}
}

// Save creates or updates a stock batch. On first save the database assigns
// Seq, from which the batch code is derived.
func (r *GormStockBatchRepository) Save(ctx context.Context, batch *ledger.StockBatch) error {
	if batch.Seq == 0 && r.db.Dialector.Name() != "postgres" {
		// SQLite has no identity columns outside the rowid; emulate one so
		// the batch code derivation works the same in tests.
		var maxSeq int64
		if err := r.db.WithContext(ctx).Model(&ledger.StockBatch{}).
			Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
			return err
		}
		batch.Seq = maxSeq + 1
	}
	return r.db.WithContext(ctx).Save(batch).Error
}

// FindByID finds a stock batch by its ID
func (r *GormStockBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.StockBatch, error) {
	var batch ledger.StockBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByCode finds a stock batch by its batch code
func (r *GormStockBatchRepository) FindByCode(ctx context.Context, code string) (*ledger.StockBatch, error) {
	var batch ledger.StockBatch
	if err := r.db.WithContext(ctx).First(&batch, "batch_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByProductID finds all batches of a product in FEFO order, including
// depleted and expired ones
func (r *GormStockBatchRepository) FindByProductID(ctx context.Context, productID uuid.UUID) ([]ledger.StockBatch, error) {
	var batches []ledger.StockBatch
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order(fefoOrder).
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindDeductibleForUpdate loads the batches a sale may draw from, in FEFO
// order, under row locks. Must run inside a transaction.
func (r *GormStockBatchRepository) FindDeductibleForUpdate(ctx context.Context, productID uuid.UUID, at time.Time) ([]ledger.StockBatch, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var batches []ledger.StockBatch
	if err := query.
		Where("product_id = ? AND remaining > 0", productID).
		Where("expiry_date IS NULL OR expiry_date > ?", at).
		Order(fefoOrder).
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindExpiringWithin lists batches with stock left that expire before the
// cutoff, soonest first
func (r *GormStockBatchRepository) FindExpiringWithin(ctx context.Context, cutoff time.Time, filter shared.Filter) ([]ledger.StockBatch, error) {
	query := r.db.WithContext(ctx).Model(&ledger.StockBatch{}).
		Where("remaining > 0").
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", cutoff).
		Order("expiry_date ASC, seq ASC")

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var batches []ledger.StockBatch
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// Ensure GormStockBatchRepository implements StockBatchRepository
var _ ledger.StockBatchRepository = (*GormStockBatchRepository)(nil)
