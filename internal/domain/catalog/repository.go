package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/shared"
)

// ProductRepository defines persistence operations for products
type ProductRepository interface {
	shared.Repository[Product]
	FindByCode(ctx context.Context, code string) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	FindBelowReorderThreshold(ctx context.Context, filter shared.Filter) ([]Product, error)

	// FindByIDForUpdate loads a product under a row lock so the stock
	// aggregate cannot move between the availability check and the deduct.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
}
