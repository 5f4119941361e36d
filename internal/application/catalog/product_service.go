package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/catalog"
	"github.com/medipos/backend/internal/domain/shared"
)

// ProductService handles product catalog operations. Stock movements are
// not among them: StockOnHand belongs to the ledger engine.
type ProductService struct {
	productRepo catalog.ProductRepository
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// CreateProduct creates a product with zero stock
func (s *ProductService) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	existing, err := s.productRepo.FindByCode(ctx, req.Code)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.ErrAlreadyExists
	}

	product, err := catalog.NewProduct(req.Code, req.Name, req.UnitPrice)
	if err != nil {
		return nil, err
	}
	product.GenericName = req.GenericName
	product.Description = req.Description
	if req.Barcode != "" {
		if err := product.SetBarcode(req.Barcode); err != nil {
			return nil, err
		}
	}
	if req.ReorderThreshold > 0 {
		if err := product.SetReorderThreshold(req.ReorderThreshold); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	resp := ToProductResponse(product)
	return &resp, nil
}

// UpdateProduct updates a product's catalog fields
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := product.Update(req.Name, req.GenericName, req.Description); err != nil {
		return nil, err
	}
	if req.Barcode != nil {
		if err := product.SetBarcode(*req.Barcode); err != nil {
			return nil, err
		}
	}
	if req.UnitPrice != nil {
		if err := product.SetUnitPrice(*req.UnitPrice); err != nil {
			return nil, err
		}
	}
	if req.ReorderThreshold != nil {
		if err := product.SetReorderThreshold(*req.ReorderThreshold); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	resp := ToProductResponse(product)
	return &resp, nil
}

// GetProduct returns a product by id
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// GetProductByCode returns a product by its code
func (s *ProductService) GetProductByCode(ctx context.Context, code string) (*ProductResponse, error) {
	product, err := s.productRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// ListProducts returns products matching the filter plus the total count
func (s *ProductService) ListProducts(ctx context.Context, filter shared.Filter) ([]ProductResponse, int64, error) {
	products, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.productRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToProductResponses(products), total, nil
}

// ListLowStock returns active products at or below their reorder threshold
func (s *ProductService) ListLowStock(ctx context.Context, filter shared.Filter) ([]ProductResponse, error) {
	products, err := s.productRepo.FindBelowReorderThreshold(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ToProductResponses(products), nil
}

// DeactivateProduct stops a product from being sold without touching its
// batches or audit history
func (s *ProductService) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	product.Deactivate()
	return s.productRepo.Save(ctx, product)
}

// DeleteProduct removes a product. Its batches and audit entries stay; a
// later reversal touching this product is skipped, not failed.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.productRepo.Delete(ctx, id)
}
