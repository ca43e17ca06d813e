package service

import (
	"context"
	"time"

	"shuttering-manager/internal/domain"
)

type InventoryService interface {
	CreateMaterial(ctx context.Context, material *domain.Material) error
	GetMaterial(ctx context.Context, id int32) (*domain.Material, error)
	ListMaterials(ctx context.Context) ([]domain.Material, error)
	AdjustStock(ctx context.Context, materialID int32, variantID *int32, delta int32) (*domain.Material, error)
	UpdateVariantPrice(ctx context.Context, materialID, variantID int32, priceCents int64) error
}

type RentalService interface {
	CreateRental(ctx context.Context, input CreateRentalInput) (*domain.Rental, error)
	GetRental(ctx context.Context, id int32) (*domain.Rental, error)
	ListRentals(ctx context.Context, status string, page, pageSize int32) ([]domain.Rental, int32, error)
	ApplyReturns(ctx context.Context, rentalID int32, returns []ReturnItem) (*domain.Rental, error)
	ReturnAll(ctx context.Context, rentalID int32) (*domain.Rental, error)
	AddPayment(ctx context.Context, rentalID int32, amountCents int64) (*domain.Rental, error)
	CancelRental(ctx context.Context, rentalID int32) (*domain.Rental, error)
}

type CreateRentalInput struct {
	CustomerName       string
	CustomerPhone      string
	ExpectedReturnDate *time.Time
	PaidAmountCents    int64
	Items              []RentalItemInput
}

type RentalItemInput struct {
	MaterialID int32
	VariantID  *int32
	// Price agreed at the counter. Zero means "use the catalog price";
	// either way the chosen price is snapshotted onto the line item.
	PricePerDayCents int64
	Qty              int32
}

type ReturnItem struct {
	MaterialID int32
	VariantID  *int32
	Qty        int32
}
