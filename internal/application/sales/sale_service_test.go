package sales

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appledger "github.com/medipos/backend/internal/application/ledger"
	"github.com/medipos/backend/internal/domain/catalog"
	"github.com/medipos/backend/internal/domain/ledger"
	"github.com/medipos/backend/internal/domain/sales"
	"github.com/medipos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory repository fakes. They copy on read and write like real rows so
// a failed operation cannot leak mutations into the store.

type fakeProductRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*catalog.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{items: make(map[uuid.UUID]*catalog.Product)}
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeProductRepo) FindByCode(_ context.Context, code string) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.items[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) FindAll(_ context.Context, _ shared.Filter) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Product, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProductRepo) FindBelowReorderThreshold(_ context.Context, _ shared.Filter) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Product, 0)
	for _, p := range r.items {
		if p.IsBelowReorderThreshold() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) Save(_ context.Context, p *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *fakeProductRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

type fakeBatchRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*ledger.StockBatch
	nextSeq int64
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{items: make(map[uuid.UUID]*ledger.StockBatch)}
}

func (r *fakeBatchRepo) Save(_ context.Context, b *ledger.StockBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.Seq == 0 {
		r.nextSeq++
		b.Seq = r.nextSeq
	}
	cp := *b
	r.items[b.ID] = &cp
	return nil
}

func (r *fakeBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.StockBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBatchRepo) FindByCode(_ context.Context, code string) (*ledger.StockBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.items {
		if b.BatchCode == code {
			cp := *b
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeBatchRepo) FindByProductID(_ context.Context, productID uuid.UUID) ([]ledger.StockBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.StockBatch, 0)
	for _, b := range r.items {
		if b.ProductID == productID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *fakeBatchRepo) FindDeductibleForUpdate(_ context.Context, productID uuid.UUID, at time.Time) ([]ledger.StockBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.StockBatch, 0)
	for _, b := range r.items {
		if b.ProductID == productID && b.IsDeductible(at) {
			out = append(out, *b)
		}
	}
	ledger.SortFEFO(out)
	return out, nil
}

func (r *fakeBatchRepo) FindExpiringWithin(_ context.Context, cutoff time.Time, _ shared.Filter) ([]ledger.StockBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.StockBatch, 0)
	for _, b := range r.items {
		if b.Remaining > 0 && b.ExpiryDate != nil && b.ExpiryDate.Before(cutoff) {
			out = append(out, *b)
		}
	}
	ledger.SortFEFO(out)
	return out, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []ledger.AuditEntry
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Append(_ context.Context, e *ledger.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeAuditRepo) FindByProductID(_ context.Context, productID uuid.UUID, _ shared.Filter) ([]ledger.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.AuditEntry, 0)
	for _, e := range r.entries {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) FindByCorrelationID(_ context.Context, correlationID uuid.UUID) ([]ledger.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.AuditEntry, 0)
	for _, e := range r.entries {
		if e.CorrelationID != nil && *e.CorrelationID == correlationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) SumDeltasByBatch(_ context.Context, batchID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, e := range r.entries {
		if e.BatchID != nil && *e.BatchID == batchID {
			sum += e.Delta
		}
	}
	return sum, nil
}

type fakeSaleRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*sales.Sale
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{items: make(map[uuid.UUID]*sales.Sale)}
}

func copySale(s *sales.Sale) *sales.Sale {
	cp := *s
	cp.Items = append([]sales.SaleItem(nil), s.Items...)
	return &cp
}

func (r *fakeSaleRepo) Save(_ context.Context, s *sales.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = copySale(s)
	return nil
}

func (r *fakeSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return copySale(s), nil
}

func (r *fakeSaleRepo) FindByNumber(_ context.Context, number string) (*sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.SaleNumber == number {
			return copySale(s), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSaleRepo) FindAll(_ context.Context, _ shared.Filter) ([]sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sales.Sale, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, *copySale(s))
	}
	return out, nil
}

func (r *fakeSaleRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

type fakeIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *fakeIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

// fixture wires the real services over the fakes through a no-op scope
type fixture struct {
	productRepo *fakeProductRepo
	batchRepo   *fakeBatchRepo
	auditRepo   *fakeAuditRepo
	saleRepo    *fakeSaleRepo
	ledgerSvc   *appledger.LedgerService
	saleSvc     *SaleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	productRepo := newFakeProductRepo()
	batchRepo := newFakeBatchRepo()
	auditRepo := newFakeAuditRepo()
	saleRepo := newFakeSaleRepo()
	scope := appledger.NewNoOpTransactionScope(productRepo, batchRepo, auditRepo, saleRepo)

	return &fixture{
		productRepo: productRepo,
		batchRepo:   batchRepo,
		auditRepo:   auditRepo,
		saleRepo:    saleRepo,
		ledgerSvc:   appledger.NewLedgerService(scope, batchRepo, auditRepo),
		saleSvc:     NewSaleService(scope, saleRepo),
	}
}

func (f *fixture) addProduct(t *testing.T, code, name string, price float64) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(code, name, decimal.NewFromFloat(price))
	require.NoError(t, err)
	require.NoError(t, f.productRepo.Save(context.Background(), product))
	return product
}

func (f *fixture) addBatch(t *testing.T, productID uuid.UUID, quantity int64, expiry *time.Time) appledger.BatchResponse {
	t.Helper()
	resp, err := f.ledgerSvc.CreateBatch(context.Background(), appledger.CreateBatchRequest{
		ProductID:  productID.String(),
		Quantity:   quantity,
		ExpiryDate: expiry,
	})
	require.NoError(t, err)
	return *resp
}

func (f *fixture) stockOnHand(t *testing.T, productID uuid.UUID) int64 {
	t.Helper()
	product, err := f.productRepo.FindByID(context.Background(), productID)
	require.NoError(t, err)
	return product.StockOnHand
}

func expiryIn(days int) *time.Time {
	d := time.Now().AddDate(0, 0, days)
	return &d
}

func TestCommitSale_DeductsFEFOAcrossBatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "AMOX-500", "Amoxicillin 500mg", 3.50)
	later := f.addBatch(t, product.ID, 10, expiryIn(180))
	sooner := f.addBatch(t, product.ID, 10, expiryIn(30))
	require.Equal(t, int64(20), f.stockOnHand(t, product.ID))

	resp, err := f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 12}},
	})
	require.NoError(t, err)

	assert.Equal(t, sales.SaleStatusCompleted.String(), resp.Status)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(12), resp.Items[0].Quantity)
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromFloat(42.00)))

	// The soon-expiring batch drains first even though it arrived second.
	soonerAfter, err := f.batchRepo.FindByID(ctx, sooner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), soonerAfter.Remaining)
	laterAfter, err := f.batchRepo.FindByID(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), laterAfter.Remaining)

	assert.Equal(t, int64(8), f.stockOnHand(t, product.ID))

	// Audit: one entry per touched batch, deltas summing to -12.
	entries, err := f.auditRepo.FindByCorrelationID(ctx, resp.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	var sum int64
	for _, e := range entries {
		require.NotNil(t, e.BatchID)
		assert.Equal(t, ledger.ReasonSale, e.Reason)
		sum += e.Delta
	}
	assert.Equal(t, int64(-12), sum)
}

func TestCommitSale_InsufficientStockLeavesNothingTouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "IBU-400", "Ibuprofen 400mg", 2.00)
	f.addBatch(t, product.ID, 4, expiryIn(90))

	_, err := f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 6}},
	})

	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(4), stockErr.Available)
	assert.Equal(t, int64(6), stockErr.Requested)

	assert.Equal(t, int64(4), f.stockOnHand(t, product.ID))
	count, err := f.saleRepo.Count(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Zero(t, count, "no sale row on a failed commit")

	entries, err := f.auditRepo.FindByProductID(ctx, product.ID, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the batch receipt entry exists")
	assert.Equal(t, ledger.ReasonBatchReceived, entries[0].Reason)
}

func TestCommitSale_SequentialContention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "PARA-500", "Paracetamol 500mg", 1.20)
	f.addBatch(t, product.ID, 10, expiryIn(60))

	first, err := f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 6}},
	})
	require.NoError(t, err)
	assert.Equal(t, sales.SaleStatusCompleted.String(), first.Status)

	_, err = f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 6}},
	})
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(4), stockErr.Available)
	assert.Equal(t, int64(6), stockErr.Requested)

	assert.Equal(t, int64(4), f.stockOnHand(t, product.ID))
}

func TestCommitSale_AggregatesRepeatedLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "CETI-10", "Cetirizine 10mg", 0.80)
	f.addBatch(t, product.ID, 10, nil)

	resp, err := f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{
			{ProductID: product.ID.String(), Quantity: 3},
			{ProductID: product.ID.String(), Quantity: 4},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Items, 2, "lines stay separate on the receipt")
	assert.Equal(t, int64(3), f.stockOnHand(t, product.ID))
}

func TestCommitSale_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "OMEP-20", "Omeprazole 20mg", 4.10)
	f.addBatch(t, product.ID, 10, nil)

	_, err := f.saleSvc.CommitSale(ctx, CommitSaleRequest{})
	assert.ErrorIs(t, err, shared.ErrInvalidLineItem)

	_, err = f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 0}},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidLineItem)

	_, err = f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: "not-a-uuid", Quantity: 1}},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidLineItem)

	_, err = f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: uuid.New().String(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, shared.ErrProductNotFound)

	product.Deactivate()
	require.NoError(t, f.productRepo.Save(ctx, product))
	_, err = f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 1}},
	})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_LINE_ITEM", domainErr.Code)

	assert.Equal(t, int64(10), f.stockOnHand(t, product.ID), "failed commits never move stock")
}

func TestCommitSale_IgnoresExpiredBatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "ASPI-100", "Aspirin 100mg", 0.50)
	f.addBatch(t, product.ID, 10, expiryIn(-1))
	f.addBatch(t, product.ID, 5, expiryIn(90))

	_, err := f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 6}},
	})

	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(5), stockErr.Available, "expired units are not sellable")
}

func TestCommitSale_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "AMOX-500", "Amoxicillin 500mg", 3.50)
	f.addBatch(t, product.ID, 10, nil)

	f.saleSvc.SetIdempotencyStore(newFakeIdempotencyStore(), time.Hour)

	req := CommitSaleRequest{
		Items:          []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 2}},
		IdempotencyKey: "pos-7-receipt-1042",
	}

	_, err := f.saleSvc.CommitSale(ctx, req)
	require.NoError(t, err)

	_, err = f.saleSvc.CommitSale(ctx, req)
	assert.ErrorIs(t, err, shared.ErrDuplicateRequest)
	assert.Equal(t, int64(8), f.stockOnHand(t, product.ID), "retry does not double-deduct")
}

func TestCommitSale_ConcurrentRetriesSameKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "AMOX-500", "Amoxicillin 500mg", 3.50)
	f.addBatch(t, product.ID, 10, nil)

	f.saleSvc.SetIdempotencyStore(newFakeIdempotencyStore(), time.Hour)

	req := CommitSaleRequest{
		Items:          []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 2}},
		IdempotencyKey: "pos-7-receipt-1042",
	}

	// A terminal retrying before its first request finished: both requests
	// are in flight at once. The key is claimed before any stock moves, so
	// exactly one commit runs.
	errs := make(chan error, 2)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.saleSvc.CommitSale(ctx, req)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var committed, rejected int
	for err := range errs {
		switch {
		case err == nil:
			committed++
		case errors.Is(err, shared.ErrDuplicateRequest):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, int64(8), f.stockOnHand(t, product.ID), "the duplicate deducts nothing")
}

func TestCommitSale_FailedCommitReleasesKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "IBU-400", "Ibuprofen 400mg", 2.00)
	f.addBatch(t, product.ID, 4, nil)

	f.saleSvc.SetIdempotencyStore(newFakeIdempotencyStore(), time.Hour)

	req := CommitSaleRequest{
		Items:          []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 6}},
		IdempotencyKey: "pos-3-receipt-88",
	}

	_, err := f.saleSvc.CommitSale(ctx, req)
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	// A failed commit must not burn the key: after restocking, the same
	// receipt goes through.
	f.addBatch(t, product.ID, 10, nil)
	resp, err := f.saleSvc.CommitSale(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, sales.SaleStatusCompleted.String(), resp.Status)
	assert.Equal(t, int64(8), f.stockOnHand(t, product.ID))
}

func TestReverseSale_RestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "PARA-500", "Paracetamol 500mg", 1.20)
	f.addBatch(t, product.ID, 10, expiryIn(60))

	committed, err := f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 6}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(4), f.stockOnHand(t, product.ID))

	actor := uuid.New()
	result, err := f.saleSvc.ReverseSale(ctx, committed.ID, ReverseSaleRequest{
		Reason:  "customer returned items",
		ActorID: &actor,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.RestoredProducts)
	assert.Equal(t, int64(6), result.RestoredUnits)
	assert.Empty(t, result.SkippedProductIDs)
	assert.Equal(t, int64(10), f.stockOnHand(t, product.ID))

	reversed, err := f.saleRepo.FindByID(ctx, committed.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.SaleStatusCancelled, reversed.Status)
	assert.Equal(t, "customer returned items", reversed.CancelReason)
	require.NotNil(t, reversed.CancelledBy)
	assert.Equal(t, actor, *reversed.CancelledBy)

	// Net movement for the sale is zero: -6 at commit, +6 at reversal.
	entries, err := f.auditRepo.FindByCorrelationID(ctx, committed.ID)
	require.NoError(t, err)
	var sum int64
	for _, e := range entries {
		sum += e.Delta
	}
	assert.Zero(t, sum)

	// Restoration is product-level: the reversal entry carries no batch.
	last := entries[len(entries)-1]
	assert.Equal(t, ledger.ReasonSaleReversal, last.Reason)
	assert.Nil(t, last.BatchID)
	assert.Equal(t, int64(6), last.Delta)
	assert.Equal(t, int64(10), last.BalanceAfter)
}

func TestReverseSale_SkipsDeletedProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keep := f.addProduct(t, "AMOX-500", "Amoxicillin 500mg", 3.50)
	f.addBatch(t, keep.ID, 10, nil)
	gone := f.addProduct(t, "CETI-10", "Cetirizine 10mg", 0.80)
	f.addBatch(t, gone.ID, 10, nil)

	committed, err := f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{
			{ProductID: keep.ID.String(), Quantity: 2},
			{ProductID: gone.ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)

	require.NoError(t, f.productRepo.Delete(ctx, gone.ID))

	result, err := f.saleSvc.ReverseSale(ctx, committed.ID, ReverseSaleRequest{Reason: "refund"})
	require.NoError(t, err, "a deleted product never fails the refund")

	assert.Equal(t, 1, result.RestoredProducts)
	assert.Equal(t, int64(2), result.RestoredUnits)
	require.Len(t, result.SkippedProductIDs, 1)
	assert.Equal(t, gone.ID, result.SkippedProductIDs[0])

	assert.Equal(t, int64(10), f.stockOnHand(t, keep.ID))

	reversed, err := f.saleRepo.FindByID(ctx, committed.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.SaleStatusCancelled, reversed.Status, "sale cancels despite the skip")

	// The skip leaves a zero-delta marker in the audit log.
	entries, err := f.auditRepo.FindByProductID(ctx, gone.ID, shared.DefaultFilter())
	require.NoError(t, err)
	var marker *ledger.AuditEntry
	for i := range entries {
		if entries[i].Reason == ledger.ReasonReversalSkipped {
			marker = &entries[i]
		}
	}
	require.NotNil(t, marker)
	assert.Zero(t, marker.Delta)
	assert.Nil(t, marker.BatchID)
	require.NotNil(t, marker.CorrelationID)
	assert.Equal(t, committed.ID, *marker.CorrelationID)
}

func TestReverseSale_OutsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "IBU-400", "Ibuprofen 400mg", 2.00)
	f.addBatch(t, product.ID, 10, nil)

	committed, err := f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 3}},
	})
	require.NoError(t, err)

	// Backdate completion past the window.
	stored, err := f.saleRepo.FindByID(ctx, committed.ID)
	require.NoError(t, err)
	old := stored.CompletedAt.Add(-25 * time.Hour)
	stored.CompletedAt = &old
	require.NoError(t, f.saleRepo.Save(ctx, stored))

	_, err = f.saleSvc.ReverseSale(ctx, committed.ID, ReverseSaleRequest{Reason: "too late"})
	assert.ErrorIs(t, err, shared.ErrTooOldToReverse)

	assert.Equal(t, int64(7), f.stockOnHand(t, product.ID), "rejected reversal moves nothing")
	after, err := f.saleRepo.FindByID(ctx, committed.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.SaleStatusCompleted, after.Status)
}

func TestReverseSale_AlreadyCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product := f.addProduct(t, "OMEP-20", "Omeprazole 20mg", 4.10)
	f.addBatch(t, product.ID, 10, nil)

	committed, err := f.saleSvc.CommitSale(ctx, CommitSaleRequest{
		Items: []SaleLineRequest{{ProductID: product.ID.String(), Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = f.saleSvc.ReverseSale(ctx, committed.ID, ReverseSaleRequest{Reason: "refund"})
	require.NoError(t, err)

	_, err = f.saleSvc.ReverseSale(ctx, committed.ID, ReverseSaleRequest{Reason: "refund again"})
	assert.ErrorIs(t, err, shared.ErrAlreadyCancelled)
	assert.Equal(t, int64(10), f.stockOnHand(t, product.ID), "no double restore")
}

func TestReverseSale_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.saleSvc.ReverseSale(context.Background(), uuid.New(), ReverseSaleRequest{Reason: "refund"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
