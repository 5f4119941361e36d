package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medipos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SaleStatus represents the status of a sale
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "PENDING"
	SaleStatusCompleted SaleStatus = "COMPLETED"
	SaleStatusCancelled SaleStatus = "CANCELLED"
)

// IsValid checks if the status is a valid SaleStatus
func (s SaleStatus) IsValid() bool {
	switch s {
	case SaleStatusPending, SaleStatusCompleted, SaleStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of SaleStatus
func (s SaleStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s SaleStatus) CanTransitionTo(target SaleStatus) bool {
	switch s {
	case SaleStatusPending:
		return target == SaleStatusCompleted
	case SaleStatusCompleted:
		return target == SaleStatusCancelled
	case SaleStatusCancelled:
		return false
	}
	return false
}

// SaleItem is one line of a sale. Quantity is frozen when the sale
// completes and is the exact amount restored if the sale is reversed.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    int64           `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (SaleItem) TableName() string {
	return "sale_items"
}

// NewSaleItem creates a sale line item
func NewSaleItem(saleID, productID uuid.UUID, productName string, quantity int64, unitPrice decimal.Decimal) (*SaleItem, error) {
	if productID == uuid.Nil {
		return nil, shared.ErrInvalidLineItem
	}
	if quantity <= 0 {
		return nil, shared.ErrInvalidLineItem
	}
	if unitPrice.IsNegative() {
		return nil, shared.ErrInvalidLineItem
	}

	now := time.Now()
	return &SaleItem{
		ID:          uuid.New(),
		SaleID:      saleID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      unitPrice.Mul(decimal.NewFromInt(quantity)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Sale is the aggregate root for one point-of-sale transaction
type Sale struct {
	shared.BaseAggregateRoot
	SaleNumber    string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	Status        SaleStatus      `gorm:"type:varchar(20);not null;default:'PENDING'"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Discount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PayableAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;default:'cash'"`
	CustomerRef   string          `gorm:"type:varchar(100)"`
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	CancelReason  string     `gorm:"type:varchar(200)"`
	CancelledBy   *uuid.UUID `gorm:"type:uuid"`
	Items         []SaleItem `gorm:"foreignKey:SaleID"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale creates a pending sale with no items
func NewSale(paymentMethod, customerRef string) *Sale {
	sale := &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Status:            SaleStatusPending,
		TotalAmount:       decimal.Zero,
		Discount:          decimal.Zero,
		PayableAmount:     decimal.Zero,
		PaymentMethod:     paymentMethod,
		CustomerRef:       customerRef,
	}
	sale.SaleNumber = formatSaleNumber(sale.CreatedAt, sale.ID)
	return sale
}

func formatSaleNumber(createdAt time.Time, id uuid.UUID) string {
	return fmt.Sprintf("SL%s-%s", createdAt.Format("060102"), id.String()[:8])
}

// AddItem appends a line item while the sale is still pending
func (s *Sale) AddItem(productID uuid.UUID, productName string, quantity int64, unitPrice decimal.Decimal) error {
	if s.Status != SaleStatusPending {
		return shared.ErrInvalidState
	}

	item, err := NewSaleItem(s.ID, productID, productName, quantity, unitPrice)
	if err != nil {
		return err
	}

	s.Items = append(s.Items, *item)
	s.TotalAmount = s.TotalAmount.Add(item.Amount)
	s.PayableAmount = s.TotalAmount.Sub(s.Discount)
	s.UpdatedAt = time.Now()

	return nil
}

// ApplyDiscount sets the discount and recomputes the payable amount
func (s *Sale) ApplyDiscount(discount decimal.Decimal) error {
	if s.Status != SaleStatusPending {
		return shared.ErrInvalidState
	}
	if discount.IsNegative() || discount.GreaterThan(s.TotalAmount) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount must be between zero and the sale total")
	}

	s.Discount = discount
	s.PayableAmount = s.TotalAmount.Sub(discount)
	s.UpdatedAt = time.Now()

	return nil
}

// TotalQuantity returns the summed quantity over all items
func (s *Sale) TotalQuantity() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

// Complete marks the sale as paid and fulfilled. Items freeze at this point.
func (s *Sale) Complete() error {
	if !s.Status.CanTransitionTo(SaleStatusCompleted) {
		return shared.ErrInvalidState
	}
	if len(s.Items) == 0 {
		return shared.ErrInvalidLineItem
	}

	now := time.Now()
	s.Status = SaleStatusCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()

	return nil
}

// CanReverse checks whether the sale may be reversed at the given moment.
// Only completed sales inside the reversal window qualify.
func (s *Sale) CanReverse(now time.Time, window time.Duration) error {
	switch s.Status {
	case SaleStatusCancelled:
		return shared.ErrAlreadyCancelled
	case SaleStatusPending:
		return shared.ErrInvalidState
	}

	if s.CompletedAt == nil || now.Sub(*s.CompletedAt) > window {
		return shared.ErrTooOldToReverse
	}

	return nil
}

// Cancel marks the sale as cancelled. Only a completed sale can cancel; a
// pending one has deducted nothing, so there is nothing to compensate. The
// stock restoration that goes with cancellation is the caller's
// responsibility; the sale records who, when, and why.
func (s *Sale) Cancel(reason string, cancelledBy *uuid.UUID) error {
	if !s.Status.CanTransitionTo(SaleStatusCancelled) {
		if s.Status == SaleStatusCancelled {
			return shared.ErrAlreadyCancelled
		}
		return shared.ErrInvalidState
	}

	now := time.Now()
	s.Status = SaleStatusCancelled
	s.CancelledAt = &now
	s.CancelReason = reason
	s.CancelledBy = cancelledBy
	s.UpdatedAt = now
	s.IncrementVersion()

	return nil
}
