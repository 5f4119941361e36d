package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/catalog"
	"github.com/medipos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBelowReorderThreshold(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func TestCreateProduct_Success(t *testing.T) {
	repo := new(MockProductRepository)
	svc := NewProductService(repo)
	ctx := context.Background()

	repo.On("FindByCode", ctx, "AMOX-500").Return(nil, shared.ErrNotFound)
	repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

	resp, err := svc.CreateProduct(ctx, CreateProductRequest{
		Code:             "AMOX-500",
		Name:             "Amoxicillin 500mg",
		GenericName:      "Amoxicillin",
		UnitPrice:        decimal.NewFromFloat(3.50),
		ReorderThreshold: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, "AMOX-500", resp.Code)
	assert.Equal(t, "Amoxicillin", resp.GenericName)
	assert.Zero(t, resp.StockOnHand)
	assert.Equal(t, int64(20), resp.ReorderThreshold)
	assert.True(t, resp.LowStock, "new product with a threshold starts below it")

	repo.AssertExpectations(t)
}

func TestCreateProduct_DuplicateCode(t *testing.T) {
	repo := new(MockProductRepository)
	svc := NewProductService(repo)
	ctx := context.Background()

	existing, err := catalog.NewProduct("AMOX-500", "Amoxicillin 500mg", decimal.NewFromFloat(3.50))
	require.NoError(t, err)
	repo.On("FindByCode", ctx, "AMOX-500").Return(existing, nil)

	_, err = svc.CreateProduct(ctx, CreateProductRequest{
		Code:      "AMOX-500",
		Name:      "Amoxicillin 500mg again",
		UnitPrice: decimal.NewFromFloat(3.50),
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	repo := new(MockProductRepository)
	svc := NewProductService(repo)
	ctx := context.Background()

	id := uuid.New()
	repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

	_, err := svc.UpdateProduct(ctx, id, UpdateProductRequest{Name: "Renamed"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateProduct_PartialFields(t *testing.T) {
	repo := new(MockProductRepository)
	svc := NewProductService(repo)
	ctx := context.Background()

	product, err := catalog.NewProduct("IBU-400", "Ibuprofen 400mg", decimal.NewFromFloat(2.00))
	require.NoError(t, err)

	repo.On("FindByID", ctx, product.ID).Return(product, nil)
	repo.On("Save", ctx, product).Return(nil)

	newPrice := decimal.NewFromFloat(2.40)
	resp, err := svc.UpdateProduct(ctx, product.ID, UpdateProductRequest{
		Name:      "Ibuprofen 400mg film-coated",
		UnitPrice: &newPrice,
	})
	require.NoError(t, err)

	assert.Equal(t, "Ibuprofen 400mg film-coated", resp.Name)
	assert.True(t, resp.UnitPrice.Equal(newPrice))
	repo.AssertExpectations(t)
}

func TestDeleteProduct(t *testing.T) {
	repo := new(MockProductRepository)
	svc := NewProductService(repo)
	ctx := context.Background()

	product, err := catalog.NewProduct("CETI-10", "Cetirizine 10mg", decimal.NewFromFloat(0.80))
	require.NoError(t, err)

	repo.On("FindByID", ctx, product.ID).Return(product, nil)
	repo.On("Delete", ctx, product.ID).Return(nil)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))
	repo.AssertExpectations(t)

	missing := uuid.New()
	repo.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, missing), shared.ErrNotFound)
}
