package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"shuttering-manager/internal/domain"
)

// MockMaterialRepo
type MockMaterialRepo struct {
	mock.Mock
}

func (m *MockMaterialRepo) Create(ctx context.Context, material *domain.Material) error {
	args := m.Called(ctx, material)
	return args.Error(0)
}
func (m *MockMaterialRepo) GetByID(ctx context.Context, id int32) (*domain.Material, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Material), args.Error(1)
}
func (m *MockMaterialRepo) GetVariant(ctx context.Context, materialID, variantID int32) (*domain.Variant, error) {
	args := m.Called(ctx, materialID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}
func (m *MockMaterialRepo) List(ctx context.Context) ([]domain.Material, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Material), args.Error(1)
}
func (m *MockMaterialRepo) UpdateVariantPrice(ctx context.Context, materialID, variantID int32, priceCents int64) error {
	args := m.Called(ctx, materialID, variantID, priceCents)
	return args.Error(0)
}
func (m *MockMaterialRepo) AdjustStock(ctx context.Context, materialID int32, variantID *int32, delta int32) error {
	args := m.Called(ctx, materialID, variantID, delta)
	return args.Error(0)
}

// MockRentalRepo
type MockRentalRepo struct {
	mock.Mock
}

func (m *MockRentalRepo) Create(ctx context.Context, rental *domain.Rental) error {
	args := m.Called(ctx, rental)
	return args.Error(0)
}
func (m *MockRentalRepo) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) List(ctx context.Context, status string, page, pageSize int32) ([]domain.Rental, int32, error) {
	args := m.Called(ctx, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int32), args.Error(2)
	}
	return args.Get(0).([]domain.Rental), args.Get(1).(int32), args.Error(2)
}
func (m *MockRentalRepo) ListOverdue(ctx context.Context, now time.Time) ([]domain.Rental, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) UpdateStatus(ctx context.Context, rentalID int32, status domain.RentalStatus) error {
	args := m.Called(ctx, rentalID, status)
	return args.Error(0)
}
func (m *MockRentalRepo) ApplyReturns(ctx context.Context, rentalID int32, increments map[int32]int32, status domain.RentalStatus) error {
	args := m.Called(ctx, rentalID, increments, status)
	return args.Error(0)
}
func (m *MockRentalRepo) AddPayment(ctx context.Context, rentalID int32, amountCents int64) (*domain.Rental, error) {
	args := m.Called(ctx, rentalID, amountCents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

// MockMovementRepo
type MockMovementRepo struct {
	mock.Mock
}

func (m *MockMovementRepo) Create(ctx context.Context, mv *domain.StockMovement) error {
	args := m.Called(ctx, mv)
	return args.Error(0)
}
func (m *MockMovementRepo) ListByMaterial(ctx context.Context, materialID int32, limit int32) ([]domain.StockMovement, error) {
	args := m.Called(ctx, materialID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StockMovement), args.Error(1)
}
