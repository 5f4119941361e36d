package catalog

import (
	"strings"
	"time"

	"github.com/medipos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product represents a sellable pharmacy item. It is the aggregate root for
// stock: StockOnHand is owned by the ledger engine and always equals the sum
// of Remaining over the product's non-depleted batches. Nothing else writes it.
type Product struct {
	shared.BaseAggregateRoot
	Code             string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name             string          `gorm:"type:varchar(200);not null"`
	GenericName      string          `gorm:"type:varchar(200)"`
	Description      string          `gorm:"type:text"`
	Barcode          string          `gorm:"type:varchar(50);index"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	StockOnHand      int64           `gorm:"not null;default:0"`
	ReorderThreshold int64           `gorm:"not null;default:0"`
	Status           ProductStatus   `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product with zero stock
func NewProduct(code, name string, unitPrice decimal.Decimal) (*Product, error) {
	if err := validateProductCode(code); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		UnitPrice:         unitPrice,
		Status:            ProductStatusActive,
	}, nil
}

// Update updates the product's basic information
func (p *Product) Update(name, genericName, description string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = name
	p.GenericName = genericName
	p.Description = description
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetBarcode sets the product barcode
func (p *Product) SetBarcode(barcode string) error {
	if barcode != "" && len(barcode) > 50 {
		return shared.NewDomainError("INVALID_BARCODE", "Barcode cannot exceed 50 characters")
	}

	p.Barcode = barcode
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetUnitPrice updates the selling price
func (p *Product) SetUnitPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	p.UnitPrice = price
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetReorderThreshold sets the stock level that triggers a reorder alert
func (p *Product) SetReorderThreshold(threshold int64) error {
	if threshold < 0 {
		return shared.NewDomainError("INVALID_THRESHOLD", "Reorder threshold cannot be negative")
	}

	p.ReorderThreshold = threshold
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// AddStock increases the stock aggregate. Called when a batch is received
// or a sale is reversed, always inside the same transaction as the ledger
// write that explains the change.
func (p *Product) AddStock(quantity int64) error {
	if quantity <= 0 {
		return shared.ErrInvalidQuantity
	}

	p.StockOnHand += quantity
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// DeductStock decreases the stock aggregate. The caller must have already
// secured the quantity against the product's batches; this only guards the
// aggregate floor.
func (p *Product) DeductStock(quantity int64) error {
	if quantity <= 0 {
		return shared.ErrInvalidQuantity
	}
	if p.StockOnHand < quantity {
		return shared.NewInsufficientStockError(p.ID.String(), p.StockOnHand, quantity)
	}

	p.StockOnHand -= quantity
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Activate activates the product
func (p *Product) Activate() {
	p.Status = ProductStatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// Deactivate deactivates the product; inactive products cannot be sold but
// their batches and audit history remain intact
func (p *Product) Deactivate() {
	p.Status = ProductStatusInactive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// IsActive returns true if the product can be sold
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// IsBelowReorderThreshold reports whether stock has fallen to or below the
// reorder threshold
func (p *Product) IsBelowReorderThreshold() bool {
	return p.ReorderThreshold > 0 && p.StockOnHand <= p.ReorderThreshold
}

func validateProductCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Product code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}
