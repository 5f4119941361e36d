package sales

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	appledger "github.com/medipos/backend/internal/application/ledger"
	"github.com/medipos/backend/internal/domain/catalog"
	"github.com/medipos/backend/internal/domain/ledger"
	"github.com/medipos/backend/internal/domain/sales"
	"github.com/medipos/backend/internal/domain/shared"
)

const (
	// DefaultReversalWindow bounds how long after completion a sale can
	// still be reversed at the counter
	DefaultReversalWindow = 24 * time.Hour

	defaultPaymentMethod = "cash"
)

// SaleService handles the two transactional operations of the stock ledger:
// committing a sale and reversing one.
type SaleService struct {
	scope          appledger.TransactionScope
	saleRepo       sales.SaleRepository
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	reversalWindow time.Duration
}

// NewSaleService creates a new SaleService. The standalone sale repository
// serves reads; writes go through the transaction scope.
func NewSaleService(scope appledger.TransactionScope, saleRepo sales.SaleRepository) *SaleService {
	return &SaleService{
		scope:          scope,
		saleRepo:       saleRepo,
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
		reversalWindow: DefaultReversalWindow,
	}
}

// SetIdempotencyStore enables idempotency-key checking on CommitSale
func (s *SaleService) SetIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) {
	s.idempotency = store
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

// SetReversalWindow overrides the reversal window
func (s *SaleService) SetReversalWindow(window time.Duration) {
	if window > 0 {
		s.reversalWindow = window
	}
}

// saleLine is a validated, parsed request line
type saleLine struct {
	productID uuid.UUID
	quantity  int64
}

// normalizeLines validates the request lines, parses product ids, and
// aggregates quantities per product. The returned order is ascending by
// product id; every transaction locks products in this order so two
// overlapping sales can never deadlock on each other.
func normalizeLines(items []SaleLineRequest) ([]saleLine, []uuid.UUID, map[uuid.UUID]int64, error) {
	if len(items) == 0 {
		return nil, nil, nil, shared.ErrInvalidLineItem
	}

	lines := make([]saleLine, 0, len(items))
	totals := make(map[uuid.UUID]int64, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, nil, nil, shared.ErrInvalidLineItem
		}
		productID, err := uuid.Parse(item.ProductID)
		if err != nil || productID == uuid.Nil {
			return nil, nil, nil, shared.ErrInvalidLineItem
		}
		lines = append(lines, saleLine{productID: productID, quantity: item.Quantity})
		totals[productID] += item.Quantity
	}

	ordered := make([]uuid.UUID, 0, len(totals))
	for id := range totals {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})

	return lines, ordered, totals, nil
}

// CommitSale executes the sale commit transaction: validate the lines, lock
// the products, allocate FEFO against their batches, apply the deltas, and
// persist the completed sale with its audit trail - all or nothing. A
// shortfall on any product fails the whole sale before anything is touched.
func (s *SaleService) CommitSale(ctx context.Context, req CommitSaleRequest) (*SaleResponse, error) {
	lines, ordered, totals, err := normalizeLines(req.Items)
	if err != nil {
		return nil, err
	}

	// Claim the key before touching stock. MarkProcessed is atomic, so of
	// two in-flight requests with the same key exactly one gets the claim;
	// the other is rejected without deducting anything.
	claimed := false
	if s.idempotency != nil && req.IdempotencyKey != "" {
		fresh, err := s.idempotency.MarkProcessed(ctx, req.IdempotencyKey, s.idempotencyTTL)
		if err != nil {
			return nil, err
		}
		if !fresh {
			return nil, shared.ErrDuplicateRequest
		}
		claimed = true
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = defaultPaymentMethod
	}

	var resp SaleResponse
	err = s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		now := time.Now()

		// Lock phase: every product row first, in stable order.
		locked, err := s.lockProducts(ctx, repos, ordered)
		if err != nil {
			return err
		}

		sale := sales.NewSale(paymentMethod, req.CustomerRef)
		for _, line := range lines {
			product := locked[line.productID]
			if err := sale.AddItem(product.ID, product.Name, line.quantity, product.UnitPrice); err != nil {
				return err
			}
		}
		if !req.Discount.IsZero() {
			if err := sale.ApplyDiscount(req.Discount); err != nil {
				return err
			}
		}

		// Deduct phase: per product, batches under row locks in FEFO order.
		for _, productID := range ordered {
			quantity := totals[productID]

			batches, err := repos.BatchRepo().FindDeductibleForUpdate(ctx, productID, now)
			if err != nil {
				return err
			}

			plan, err := ledger.Allocate(productID, batches, quantity, now)
			if err != nil {
				return err
			}

			byID := make(map[uuid.UUID]*ledger.StockBatch, len(batches))
			for i := range batches {
				byID[batches[i].ID] = &batches[i]
			}

			for _, alloc := range plan {
				batch := byID[alloc.BatchID]
				if err := batch.ApplyDelta(-alloc.Quantity); err != nil {
					return err
				}
				if err := repos.BatchRepo().Save(ctx, batch); err != nil {
					return err
				}

				entry := ledger.NewAuditEntry(productID, -alloc.Quantity, batch.Remaining, ledger.ReasonSale).
					WithBatch(batch.ID).
					WithCorrelation(sale.ID)
				if req.ActorID != nil {
					entry = entry.WithActor(*req.ActorID)
				}
				if err := repos.AuditRepo().Append(ctx, entry); err != nil {
					return err
				}
			}

			product := locked[productID]
			if err := product.DeductStock(quantity); err != nil {
				return err
			}
			if err := repos.ProductRepo().Save(ctx, product); err != nil {
				return err
			}
		}

		if err := sale.Complete(); err != nil {
			return err
		}
		if err := repos.SaleRepo().Save(ctx, sale); err != nil {
			return err
		}

		resp = ToSaleResponse(sale)
		return nil
	})
	if err != nil {
		if claimed {
			// A failed commit deducted nothing, so the key must not burn;
			// the terminal's retry has to be allowed through.
			_ = s.idempotency.Release(ctx, req.IdempotencyKey)
		}
		return nil, err
	}

	return &resp, nil
}

// ReverseSale executes the refund transaction. Restoration is best effort
// per item: products that have since been deleted are skipped and recorded,
// everything else gets its quantity added back to the stock aggregate. The
// sale ends CANCELLED either way.
func (s *SaleService) ReverseSale(ctx context.Context, saleID uuid.UUID, req ReverseSaleRequest) (*ReversalResult, error) {
	var result ReversalResult
	err := s.scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		sale, err := repos.SaleRepo().FindByID(ctx, saleID)
		if err != nil {
			return err
		}

		if err := sale.CanReverse(time.Now(), s.reversalWindow); err != nil {
			return err
		}

		totals := make(map[uuid.UUID]int64, len(sale.Items))
		for _, item := range sale.Items {
			totals[item.ProductID] += item.Quantity
		}
		ordered := make([]uuid.UUID, 0, len(totals))
		for id := range totals {
			ordered = append(ordered, id)
		}
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].String() < ordered[j].String()
		})

		for _, productID := range ordered {
			quantity := totals[productID]

			product, err := repos.ProductRepo().FindByIDForUpdate(ctx, productID)
			if errors.Is(err, shared.ErrNotFound) {
				// The product is gone; its units cannot be restored. Record
				// the skip in the audit log and finish the refund anyway.
				result.SkippedProductIDs = append(result.SkippedProductIDs, productID)

				entry := ledger.NewAuditEntry(productID, 0, 0, ledger.ReasonReversalSkipped).
					WithCorrelation(sale.ID)
				if req.ActorID != nil {
					entry = entry.WithActor(*req.ActorID)
				}
				if err := repos.AuditRepo().Append(ctx, entry); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}

			if err := product.AddStock(quantity); err != nil {
				return err
			}
			if err := repos.ProductRepo().Save(ctx, product); err != nil {
				return err
			}

			entry := ledger.NewAuditEntry(productID, quantity, product.StockOnHand, ledger.ReasonSaleReversal).
				WithCorrelation(sale.ID)
			if req.ActorID != nil {
				entry = entry.WithActor(*req.ActorID)
			}
			if err := repos.AuditRepo().Append(ctx, entry); err != nil {
				return err
			}

			result.RestoredProducts++
			result.RestoredUnits += quantity
		}

		if err := sale.Cancel(req.Reason, req.ActorID); err != nil {
			return err
		}
		if err := repos.SaleRepo().Save(ctx, sale); err != nil {
			return err
		}

		result.SaleID = sale.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// lockProducts loads every product under a row lock in the given order and
// checks it is sellable.
func (s *SaleService) lockProducts(ctx context.Context, repos appledger.TransactionalRepositories, ordered []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	locked := make(map[uuid.UUID]*catalog.Product, len(ordered))
	for _, productID := range ordered {
		product, err := repos.ProductRepo().FindByIDForUpdate(ctx, productID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrProductNotFound
		}
		if err != nil {
			return nil, err
		}
		if !product.IsActive() {
			return nil, shared.NewDomainError("INVALID_LINE_ITEM", "Product "+product.Code+" is not active")
		}
		locked[productID] = product
	}
	return locked, nil
}

// GetSale returns a sale by id
func (s *SaleService) GetSale(ctx context.Context, id uuid.UUID) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// GetSaleByNumber returns a sale by its human number
func (s *SaleService) GetSaleByNumber(ctx context.Context, number string) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// ListSales returns sales matching the filter plus the total count
func (s *SaleService) ListSales(ctx context.Context, filter shared.Filter) ([]SaleResponse, int64, error) {
	list, err := s.saleRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.saleRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToSaleResponses(list), total, nil
}
