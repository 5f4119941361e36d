package ledger

import (
	"context"

	"github.com/medipos/backend/internal/domain/catalog"
	"github.com/medipos/backend/internal/domain/ledger"
	"github.com/medipos/backend/internal/domain/sales"
)

// TransactionScope provides transactional access to the ledger repositories.
// Everything executed within one scope commits or rolls back atomically:
// batch deltas, the product stock aggregate, audit entries, and the sale
// header always move together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories sharing the
// current transaction.
type TransactionalRepositories interface {
	ProductRepo() catalog.ProductRepository
	BatchRepo() ledger.StockBatchRepository
	AuditRepo() ledger.AuditEntryRepository
	SaleRepo() sales.SaleRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Used in tests with mock repositories.
type NoOpTransactionScope struct {
	productRepo catalog.ProductRepository
	batchRepo   ledger.StockBatchRepository
	auditRepo   ledger.AuditEntryRepository
	saleRepo    sales.SaleRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(
	productRepo catalog.ProductRepository,
	batchRepo ledger.StockBatchRepository,
	auditRepo ledger.AuditEntryRepository,
	saleRepo sales.SaleRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		productRepo: productRepo,
		batchRepo:   batchRepo,
		auditRepo:   auditRepo,
		saleRepo:    saleRepo,
	}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ProductRepo returns the product repository
func (s *NoOpTransactionScope) ProductRepo() catalog.ProductRepository {
	return s.productRepo
}

// BatchRepo returns the stock batch repository
func (s *NoOpTransactionScope) BatchRepo() ledger.StockBatchRepository {
	return s.batchRepo
}

// AuditRepo returns the audit entry repository
func (s *NoOpTransactionScope) AuditRepo() ledger.AuditEntryRepository {
	return s.auditRepo
}

// SaleRepo returns the sale repository
func (s *NoOpTransactionScope) SaleRepo() sales.SaleRepository {
	return s.saleRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
