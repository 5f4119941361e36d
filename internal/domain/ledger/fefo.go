package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/shared"
)

// Allocation is one slice of an allocation plan: take Quantity units from
// the batch identified by BatchID.
type Allocation struct {
	BatchID  uuid.UUID
	Quantity int64
}

// SortFEFO orders batches first-expired-first-out: expiry ascending with
// never-expiring batches last, ties broken by receipt order (created_at,
// then seq).
func SortFEFO(batches []StockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		ie, je := batches[i].ExpiryDate, batches[j].ExpiryDate

		if ie == nil && je == nil {
			if !batches[i].CreatedAt.Equal(batches[j].CreatedAt) {
				return batches[i].CreatedAt.Before(batches[j].CreatedAt)
			}
			return batches[i].Seq < batches[j].Seq
		}
		if ie == nil {
			return false
		}
		if je == nil {
			return true
		}
		if !ie.Equal(*je) {
			return ie.Before(*je)
		}
		if !batches[i].CreatedAt.Equal(batches[j].CreatedAt) {
			return batches[i].CreatedAt.Before(batches[j].CreatedAt)
		}
		return batches[i].Seq < batches[j].Seq
	})
}

// Allocate builds a deduction plan for quantity units of one product. It is
// a pure function: it sorts a copy of the deductible batches in FEFO order
// and walks them greedily, taking min(remaining, still needed) from each.
// When the batches cannot cover the quantity it returns an
// InsufficientStockError carrying what was available, and no plan at all.
func Allocate(productID uuid.UUID, batches []StockBatch, quantity int64, at time.Time) ([]Allocation, error) {
	if quantity <= 0 {
		return nil, shared.ErrInvalidQuantity
	}

	deductible := make([]StockBatch, 0, len(batches))
	var available int64
	for _, b := range batches {
		if b.IsDeductible(at) {
			deductible = append(deductible, b)
			available += b.Remaining
		}
	}

	if available < quantity {
		return nil, shared.NewInsufficientStockError(productID.String(), available, quantity)
	}

	SortFEFO(deductible)

	plan := make([]Allocation, 0, len(deductible))
	left := quantity
	for _, b := range deductible {
		if left == 0 {
			break
		}
		take := b.Remaining
		if take > left {
			take = left
		}
		plan = append(plan, Allocation{BatchID: b.ID, Quantity: take})
		left -= take
	}

	return plan, nil
}
