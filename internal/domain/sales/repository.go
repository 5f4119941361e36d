package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/shared"
)

// SaleRepository defines persistence operations for sales
type SaleRepository interface {
	Save(ctx context.Context, sale *Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindByNumber(ctx context.Context, number string) (*Sale, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Sale, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
