package repository

import (
	"context"
	"time"

	"shuttering-manager/internal/domain"
)

type MaterialRepository interface {
	Create(ctx context.Context, material *domain.Material) error
	GetByID(ctx context.Context, id int32) (*domain.Material, error)
	GetVariant(ctx context.Context, materialID, variantID int32) (*domain.Variant, error)
	List(ctx context.Context) ([]domain.Material, error)
	UpdateVariantPrice(ctx context.Context, materialID, variantID int32, priceCents int64) error

	// AdjustStock applies available_quantity += delta as one atomic unit,
	// only if the result stays within [0, total_quantity]. With a variant id
	// the parent material's aggregate moves by the same delta in the same
	// unit. A negative delta that misses the guard is OutOfStock; a positive
	// one is Internal (a release must never exceed total).
	AdjustStock(ctx context.Context, materialID int32, variantID *int32, delta int32) error
}

type RentalRepository interface {
	// Create persists the rental and all line items as a single atomic write.
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id int32) (*domain.Rental, error)
	List(ctx context.Context, status string, page, pageSize int32) ([]domain.Rental, int32, error)
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Rental, error)
	UpdateStatus(ctx context.Context, rentalID int32, status domain.RentalStatus) error

	// ApplyReturns increments qty_returned per line item and writes the
	// recomputed status in one transaction. Keys are line item ids.
	ApplyReturns(ctx context.Context, rentalID int32, increments map[int32]int32, status domain.RentalStatus) error

	// AddPayment increments paid_amount and recomputes due_amount in a
	// single atomic statement, so concurrent payments never lose an update.
	AddPayment(ctx context.Context, rentalID int32, amountCents int64) (*domain.Rental, error)
}

type MovementRepository interface {
	Create(ctx context.Context, movement *domain.StockMovement) error
	ListByMaterial(ctx context.Context, materialID int32, limit int32) ([]domain.StockMovement, error)
}
