package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/ledger"
	"github.com/medipos/backend/internal/domain/shared"
)

// LedgerService handles batch intake and ledger queries
type LedgerService struct {
	scope     TransactionScope
	batchRepo ledger.StockBatchRepository
	auditRepo ledger.AuditEntryRepository
}

// NewLedgerService creates a new LedgerService. The standalone repositories
// serve reads; all writes go through the transaction scope.
func NewLedgerService(
	scope TransactionScope,
	batchRepo ledger.StockBatchRepository,
	auditRepo ledger.AuditEntryRepository,
) *LedgerService {
	return &LedgerService{
		scope:     scope,
		batchRepo: batchRepo,
		auditRepo: auditRepo,
	}
}

// CreateBatch receives a delivery into stock: inserts the batch, derives its
// code from the database-assigned sequence, raises the product's stock
// aggregate, and writes the receipt audit entry - one transaction.
func (s *LedgerService) CreateBatch(ctx context.Context, req CreateBatchRequest) (*BatchResponse, error) {
	if req.Quantity <= 0 {
		return nil, shared.ErrInvalidQuantity
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, shared.ErrProductNotFound
	}

	var resp BatchResponse
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.ProductRepo().FindByIDForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrProductNotFound
			}
			return err
		}

		batch, err := ledger.NewStockBatch(productID, req.Quantity, req.ExpiryDate)
		if err != nil {
			return err
		}

		// First save assigns Seq; the code derives from it and is written
		// back in the same transaction.
		if err := repos.BatchRepo().Save(ctx, batch); err != nil {
			return err
		}
		batch.AssignCode()
		if err := repos.BatchRepo().Save(ctx, batch); err != nil {
			return err
		}

		if err := product.AddStock(req.Quantity); err != nil {
			return err
		}
		if err := repos.ProductRepo().Save(ctx, product); err != nil {
			return err
		}

		entry := ledger.NewAuditEntry(productID, req.Quantity, batch.Remaining, ledger.ReasonBatchReceived).
			WithBatch(batch.ID)
		if req.ActorID != nil {
			entry = entry.WithActor(*req.ActorID)
		}
		if err := repos.AuditRepo().Append(ctx, entry); err != nil {
			return err
		}

		resp = ToBatchResponse(batch)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// GetBatch returns a single batch by id
func (s *LedgerService) GetBatch(ctx context.Context, id uuid.UUID) (*BatchResponse, error) {
	batch, err := s.batchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToBatchResponse(batch)
	return &resp, nil
}

// ListBatchesByProduct returns all batches of a product, depleted ones included
func (s *LedgerService) ListBatchesByProduct(ctx context.Context, productID uuid.UUID) ([]BatchResponse, error) {
	batches, err := s.batchRepo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return ToBatchResponses(batches), nil
}

// ListExpiring returns batches with stock left that expire within the given
// number of days, soonest first
func (s *LedgerService) ListExpiring(ctx context.Context, withinDays int, filter shared.Filter) ([]BatchResponse, error) {
	if withinDays <= 0 {
		return nil, shared.ErrInvalidInput
	}

	cutoff := time.Now().AddDate(0, 0, withinDays)
	batches, err := s.batchRepo.FindExpiringWithin(ctx, cutoff, filter)
	if err != nil {
		return nil, err
	}
	return ToBatchResponses(batches), nil
}

// GetAuditTrailByProduct returns the audit entries of a product in
// chronological order
func (s *LedgerService) GetAuditTrailByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]AuditEntryResponse, error) {
	entries, err := s.auditRepo.FindByProductID(ctx, productID, filter)
	if err != nil {
		return nil, err
	}
	return ToAuditEntryResponses(entries), nil
}

// GetAuditTrailBySale returns the audit entries correlated to a sale or reversal
func (s *LedgerService) GetAuditTrailBySale(ctx context.Context, saleID uuid.UUID) ([]AuditEntryResponse, error) {
	entries, err := s.auditRepo.FindByCorrelationID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return ToAuditEntryResponses(entries), nil
}
